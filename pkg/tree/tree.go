package tree

import (
	"errors"
	"maps"
	"slices"

	"github.com/matzehuels/taxtree/pkg/taxon"
)

var (
	// ErrInconsistent is returned when the tree's structure contradicts
	// itself: a child ID has no node record, a node is reached twice, or a
	// chain of parents loops. It means the nodes handed to [Tree.Add] did not
	// form ancestry paths of one tree.
	ErrInconsistent = errors.New("inconsistent taxonomy tree")

	// ErrNoTargets is returned by [LCAOf] when no IDs are given.
	ErrNoTargets = errors.New("no taxa given")
)

type idSet map[int64]struct{}

func (s idSet) add(id int64) { s[id] = struct{}{} }

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) sorted() []int64 { return slices.Sorted(maps.Keys(s)) }

// Tree is a taxonomy tree assembled from ancestry paths.
//
// Nodes are stored once per taxonomy ID and edges are kept as ID-indexed
// child sets; there are no pointers between nodes. The zero value is not
// usable - use [New].
type Tree struct {
	root       int64
	nodes      map[int64]taxon.Node
	children   map[int64]idSet
	marked     idSet
	simplified bool
}

// New creates a tree rooted at root and merges seed into it.
// The root ID is supplied by the caller (1 for NCBI).
func New(root int64, seed []taxon.Node) *Tree {
	t := &Tree{
		root:     root,
		nodes:    make(map[int64]taxon.Node),
		children: make(map[int64]idSet),
		marked:   make(idSet),
	}
	t.Add(seed)
	return t
}

// Add merges nodes into the tree.
//
// A node is stored only if its ID is new; later copies of the same ID are
// ignored and attributes are never merged across copies. Every non-root node
// is recorded as a child of its parent. Add is idempotent and the result does
// not depend on the order of calls.
func (t *Tree) Add(nodes []taxon.Node) {
	for _, n := range nodes {
		if _, ok := t.nodes[n.TaxID]; !ok {
			t.nodes[n.TaxID] = n.Clone()
		}
		if n.TaxID == n.ParentTaxID {
			continue
		}
		kids, ok := t.children[n.ParentTaxID]
		if !ok {
			kids = make(idSet)
			t.children[n.ParentTaxID] = kids
		}
		kids.add(n.TaxID)
	}
}

// Mark protects the given IDs from contraction. Marking is idempotent. IDs
// that have no node in the tree are not marked; they are returned so the
// caller can report them.
func (t *Tree) Mark(ids ...int64) []int64 {
	var unknown []int64
	for _, id := range ids {
		if _, ok := t.nodes[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		t.marked.add(id)
	}
	return unknown
}

// Root returns the root ID.
func (t *Tree) Root() int64 { return t.root }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID.
func (t *Tree) Node(id int64) (taxon.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Children returns the child IDs of id in ascending order.
// Returns nil for leaves and unknown IDs.
func (t *Tree) Children(id int64) []int64 {
	kids := t.children[id]
	if len(kids) == 0 {
		return nil
	}
	return kids.sorted()
}

// IsMarked reports whether id is marked.
func (t *Tree) IsMarked(id int64) bool { return t.marked.has(id) }

// Marked returns the marked IDs in ascending order.
func (t *Tree) Marked() []int64 { return t.marked.sorted() }

// Simplified reports whether [Tree.Simplify] has run.
func (t *Tree) Simplified() bool { return t.simplified }

// Edge is a parent-child pair of the tree.
type Edge struct {
	Parent int64
	Child  int64
}

// Walk visits every node reachable from the root in pre-order, children in
// ascending ID order. depth is 0 for the root. Walk stops at the first error
// returned by fn. It returns an error wrapping [ErrInconsistent] if a
// reachable ID has no node or is reached twice.
func (t *Tree) Walk(fn func(n taxon.Node, parent int64, depth int) error) error {
	type frame struct {
		id, parent int64
		depth      int
	}
	seen := make(idSet)
	stack := []frame{{id: t.root, parent: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := t.visit(f.id, seen)
		if err != nil {
			return err
		}
		if err := fn(n, f.parent, f.depth); err != nil {
			return err
		}
		kids := t.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: kids[i], parent: f.id, depth: f.depth + 1})
		}
	}
	return nil
}

// Edges returns the edges reachable from the root, in [Tree.Walk] order.
func (t *Tree) Edges() ([]Edge, error) {
	var edges []Edge
	err := t.Walk(func(n taxon.Node, parent int64, depth int) error {
		if depth > 0 {
			edges = append(edges, Edge{Parent: parent, Child: n.TaxID})
		}
		return nil
	})
	return edges, err
}

// visit looks up id during a traversal and records it in seen.
func (t *Tree) visit(id int64, seen idSet) (taxon.Node, error) {
	if seen.has(id) {
		return taxon.Node{}, inconsistent("taxon %d reached twice", id)
	}
	seen.add(id)
	n, ok := t.nodes[id]
	if !ok {
		return taxon.Node{}, inconsistent("taxon %d is referenced but was never added", id)
	}
	return n, nil
}
