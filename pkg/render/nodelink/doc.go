// Package nodelink renders taxonomy trees as node-link diagrams.
//
// # Overview
//
// This package produces Graphviz drawings of a [tree.Tree], where taxa
// appear as boxes connected by arrows from parent to child. It is the
// graphical counterpart of the text diagram printed by "taxtree tree".
//
// # Usage
//
// Convert a tree to DOT, then render it:
//
//	dot, err := nodelink.ToDOT(t, nodelink.Options{Template: "%rank: %name"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # Options
//
//   - Template: display template for node labels (see [taxon.Display]);
//     empty means the scientific name
//   - Detailed: add the rank and taxonomy ID below each label
//
// Marked taxa (the ones a query asked for) are filled so they stand out
// from the ancestors that connect them.
//
// # Dependencies
//
// Rendering runs in-process through [github.com/goccy/go-graphviz]; no
// Graphviz installation is required.
package nodelink
