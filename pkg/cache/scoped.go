package cache

// ScopedKeyer wraps a Keyer with a prefix so that several databases can share
// one cache backend without their entries colliding.
//
// Example usage:
//
//	// Keys for a Postgres-backed taxonomy
//	pg := NewScopedKeyer(NewDefaultKeyer(), "db:"+Hash([]byte(dsn))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LineageKey generates a prefixed lineage key.
func (k *ScopedKeyer) LineageKey(root, id int64) string {
	return k.prefix + k.inner.LineageKey(root, id)
}

// NodeKey generates a prefixed node key.
func (k *ScopedKeyer) NodeKey(id int64) string {
	return k.prefix + k.inner.NodeKey(id)
}

// TermKey generates a prefixed term key.
func (k *ScopedKeyer) TermKey(name string) string {
	return k.prefix + k.inner.TermKey(name)
}

// SubtreeKey generates a prefixed subtree key.
func (k *ScopedKeyer) SubtreeKey(id int64, opts SubtreeKeyOpts) string {
	return k.prefix + k.inner.SubtreeKey(id, opts)
}
