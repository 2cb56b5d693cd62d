package cache

import "strconv"

// Keyer builds cache keys for taxonomy queries.
type Keyer interface {
	// LineageKey identifies the ancestry of id below root.
	LineageKey(root, id int64) string
	// NodeKey identifies a single node record.
	NodeKey(id int64) string
	// TermKey identifies the resolution of a scientific name to an ID.
	TermKey(name string) string
	// SubtreeKey identifies the node set below id.
	SubtreeKey(id int64, opts SubtreeKeyOpts) string
}

// SubtreeKeyOpts holds the options that change a subtree's node set.
type SubtreeKeyOpts struct {
	StopAtSpecies bool `json:"stop_at_species"`
}

// DefaultKeyer produces readable keys for ID lookups and hashed keys for
// free-text and option-dependent queries.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LineageKey returns "lineage:<root>:<id>".
func (DefaultKeyer) LineageKey(root, id int64) string {
	return "lineage:" + strconv.FormatInt(root, 10) + ":" + strconv.FormatInt(id, 10)
}

// NodeKey returns "node:<id>".
func (DefaultKeyer) NodeKey(id int64) string {
	return "node:" + strconv.FormatInt(id, 10)
}

// TermKey returns "term:" followed by the hash of name.
func (DefaultKeyer) TermKey(name string) string {
	return hashKey("term", name)
}

// SubtreeKey returns "subtree:" followed by the hash of id and opts.
func (DefaultKeyer) SubtreeKey(id int64, opts SubtreeKeyOpts) string {
	return hashKey("subtree", id, opts)
}
