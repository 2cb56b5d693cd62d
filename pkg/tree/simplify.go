package tree

import (
	"fmt"

	"github.com/matzehuels/taxtree/pkg/taxon"
)

// SimplifyResult reports what [Tree.Simplify] did.
type SimplifyResult struct {
	// NodesBefore and NodesAfter count the nodes held by the tree.
	NodesBefore int
	NodesAfter  int

	// Contracted is the number of unmarked single-child nodes removed.
	Contracted int

	// Depth is the number of edges on the longest root-to-leaf path of the
	// simplified tree.
	Depth int
}

// Simplify contracts every unmarked node that has exactly one child.
//
// Starting at the root, each child c of a node is replaced by the end of its
// unique-child chain: the chain is followed while the current node has
// exactly one child and is not marked, and stops at a leaf, a branch point or
// a marked node. A node's new children are processed only after its own
// chain is resolved, so no node is contracted twice and every marked node
// survives. Nodes that are no longer reachable from the root are dropped,
// except marked ones.
//
// Simplify is destructive and runs once; later calls return the current
// sizes and do nothing. It returns an error wrapping [ErrInconsistent] if a
// chain loops or a node is reached twice.
func (t *Tree) Simplify() (SimplifyResult, error) {
	res := SimplifyResult{NodesBefore: len(t.nodes)}
	if t.simplified {
		res.NodesAfter = len(t.nodes)
		res.Depth = t.depth()
		return res, nil
	}

	type frame struct {
		id    int64
		depth int
	}
	next := make(map[int64]idSet)
	reached := idSet{t.root: {}}
	stack := []frame{{id: t.root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Depth = max(res.Depth, f.depth)

		kids := make(idSet, len(t.children[f.id]))
		for c := range t.children[f.id] {
			end, err := t.chainEnd(c)
			if err != nil {
				return res, err
			}
			kids.add(end)
		}
		if len(kids) == 0 {
			continue
		}
		next[f.id] = kids
		for c := range kids {
			if reached.has(c) {
				return res, inconsistent("taxon %d reached twice", c)
			}
			reached.add(c)
			stack = append(stack, frame{id: c, depth: f.depth + 1})
		}
	}

	for id := range t.nodes {
		if !reached.has(id) && !t.marked.has(id) {
			delete(t.nodes, id)
		}
	}
	t.children = next
	t.simplified = true

	res.NodesAfter = len(t.nodes)
	res.Contracted = res.NodesBefore - res.NodesAfter
	return res, nil
}

// chainEnd follows the unique-child chain starting at id.
func (t *Tree) chainEnd(id int64) (int64, error) {
	for steps := 0; ; steps++ {
		kids := t.children[id]
		if len(kids) != 1 || t.marked.has(id) {
			return id, nil
		}
		if steps > len(t.children) {
			return 0, inconsistent("cycle through taxon %d", id)
		}
		for c := range kids {
			id = c
		}
	}
}

// depth returns the longest root-to-leaf path length, in edges.
func (t *Tree) depth() int {
	d := 0
	_ = t.Walk(func(_ taxon.Node, _ int64, depth int) error {
		d = max(d, depth)
		return nil
	})
	return d
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}
