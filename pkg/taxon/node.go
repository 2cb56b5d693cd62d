package taxon

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/taxtree/pkg/errors"
)

// Well-known name classes used by the NCBI dump.
const (
	ClassScientificName    = "scientific name"
	ClassSynonym           = "synonym"
	ClassCommonName        = "common name"
	ClassGenbankCommonName = "genbank common name"
	ClassAuthority         = "authority"
)

// Well-known ranks.
const (
	RankNone    = "no rank"
	RankSpecies = "species"
)

// DefaultRootID is the ID of the NCBI taxonomy root. Code that needs the root
// takes it as a parameter; this constant is only the conventional default.
const DefaultRootID int64 = 1

// Node is one taxonomy entry.
//
// Names maps a name class to the names of that class, in dump order. A valid
// node has at least one entry under [ClassScientificName]; [Node.Validate]
// checks this. MitoGeneticCode and Comments are empty when absent.
type Node struct {
	TaxID           int64               `json:"tax_id" yaml:"tax_id"`
	ParentTaxID     int64               `json:"parent_tax_id" yaml:"parent_tax_id"`
	Rank            string              `json:"rank" yaml:"rank"`
	Division        string              `json:"division,omitempty" yaml:"division,omitempty"`
	GeneticCode     string              `json:"genetic_code,omitempty" yaml:"genetic_code,omitempty"`
	MitoGeneticCode string              `json:"mito_genetic_code,omitempty" yaml:"mito_genetic_code,omitempty"`
	Comments        string              `json:"comments,omitempty" yaml:"comments,omitempty"`
	Names           map[string][]string `json:"names" yaml:"names"`
}

// IsRoot reports whether the node is its own parent.
func (n Node) IsRoot() bool { return n.TaxID == n.ParentTaxID }

// ScientificName returns the first scientific name, or "" if there is none.
func (n Node) ScientificName() string {
	if names := n.Names[ClassScientificName]; len(names) > 0 {
		return names[0]
	}
	return ""
}

// HasNamedRank reports whether the node's rank is something other than
// "no rank".
func (n Node) HasNamedRank() bool { return n.Rank != RankNone }

// AddName appends name under class.
func (n *Node) AddName(class, name string) {
	if n.Names == nil {
		n.Names = make(map[string][]string)
	}
	n.Names[class] = append(n.Names[class], name)
}

// Clone returns a deep copy of the node. Trees keep clones so that callers
// can reuse the slices they fetched.
func (n Node) Clone() Node {
	c := n
	c.Names = make(map[string][]string, len(n.Names))
	for class, names := range n.Names {
		c.Names[class] = slices.Clone(names)
	}
	return c
}

// NameClasses returns the node's name classes in sorted order.
func (n Node) NameClasses() []string {
	return slices.Sorted(maps.Keys(n.Names))
}

// Validate checks the record contract: a scientific name must be present.
func (n Node) Validate() error {
	if strings.TrimSpace(n.ScientificName()) == "" {
		return errors.New(errors.ErrCodeMalformedRecord, "taxon %d has no scientific name", n.TaxID)
	}
	return nil
}

// String returns the full description of the node.
func (n Node) String() string { return Describe(n) }

// CleanTerm normalizes a user-supplied term: surrounding whitespace is
// trimmed and underscores become spaces, so "Homo_sapiens" matches
// "Homo sapiens".
func CleanTerm(term string) string {
	return strings.ReplaceAll(strings.TrimSpace(term), "_", " ")
}
