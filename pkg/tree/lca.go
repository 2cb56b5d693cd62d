package tree

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/taxtree/pkg/taxon"
)

// LineageFunc returns the ancestry of id: the node itself and every ancestor
// up to and including the root. Order does not matter.
type LineageFunc func(ctx context.Context, id int64) ([]taxon.Node, error)

// LCA returns the least common ancestor of the marked nodes.
//
// The tree is simplified first if it has not been. After simplification the
// stem shared by all marked nodes has been contracted up to its first branch
// point, so the answer is the root when the root is marked or does not have
// exactly one child, and otherwise the root's only child. With no marks the
// result is the first branch point or leaf below the root.
func (t *Tree) LCA() (taxon.Node, error) {
	if _, err := t.Simplify(); err != nil {
		return taxon.Node{}, err
	}
	id := t.root
	if kids := t.Children(id); len(kids) == 1 && !t.marked.has(id) {
		id = kids[0]
	}
	n, ok := t.nodes[id]
	if !ok {
		return taxon.Node{}, inconsistent("taxon %d is referenced but was never added", id)
	}
	return n, nil
}

// LCA returns the least common ancestor of a and b in the taxonomy rooted at
// root, fetching both ancestries with fetch.
func LCA(ctx context.Context, root, a, b int64, fetch LineageFunc) (taxon.Node, error) {
	return LCAOf(ctx, root, []int64{a, b}, fetch)
}

// LCAOf returns the least common ancestor of ids. It fetches every ancestry,
// seeds a tree with the longest, merges the rest, marks ids and reads the
// answer off the simplified tree. Errors from fetch are returned unchanged.
func LCAOf(ctx context.Context, root int64, ids []int64, fetch LineageFunc) (taxon.Node, error) {
	if len(ids) == 0 {
		return taxon.Node{}, ErrNoTargets
	}
	lineages := make([][]taxon.Node, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return taxon.Node{}, err
		}
		l, err := fetch(ctx, id)
		if err != nil {
			return taxon.Node{}, err
		}
		lineages = append(lineages, l)
	}
	t := FromLineages(root, lineages)
	if unknown := t.Mark(ids...); len(unknown) > 0 {
		return taxon.Node{}, inconsistent("ancestry of taxon %d does not contain it", unknown[0])
	}
	return t.LCA()
}

// FromLineages builds a tree from several ancestries, seeding it with the
// longest. The result does not depend on the order of lineages.
func FromLineages(root int64, lineages [][]taxon.Node) *Tree {
	sorted := slices.Clone(lineages)
	slices.SortStableFunc(sorted, func(a, b []taxon.Node) int {
		return cmp.Compare(len(b), len(a))
	})
	var seed []taxon.Node
	if len(sorted) > 0 {
		seed = sorted[0]
		sorted = sorted[1:]
	}
	t := New(root, seed)
	for _, l := range sorted {
		t.Add(l)
	}
	return t
}
