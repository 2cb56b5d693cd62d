// Package taxon defines the taxonomy node record shared by the store, the
// tree engine and the renderers.
//
// # Overview
//
// A [Node] is an immutable snapshot of one NCBI taxonomy entry: its ID, its
// parent's ID, its rank and every name attached to it, grouped by name class
// ("scientific name", "synonym", "common name", ...). The root of the
// taxonomy is the only node that is its own parent.
//
// # Display Text
//
// Nodes are displayed in two ways. [Describe] produces the full multi-line
// description used by "taxtree show". [Display] applies a caller-supplied
// template instead, replacing %taxid, %name and %rank:
//
//	taxon.Display(n, "%rank: %name")   // "species: Homo sapiens"
//	taxon.Display(n, "")               // same as taxon.Describe(n)
//
// The template is a rendering option, never state stored on the node, so the
// same fetched nodes can be shown plainly and inside a tree without
// interfering with each other.
package taxon
