// Package tree merges taxonomy lineages into one tree, contracts it to its
// informative nodes and renders it.
//
// # Overview
//
// A [Tree] is built from root-to-node ancestry paths that share a global root.
// Paths are merged by taxonomy ID with [New] and [Tree.Add]: the first copy of
// a node wins and edges are added idempotently, so merging is order
// independent and merging a path twice changes nothing.
//
// Nodes of interest are protected with [Tree.Mark]. [Tree.Simplify] then
// removes every unmarked node that has exactly one child, leaving a minimal
// tree that still contains every marked node and every real branch point:
//
//	t := tree.New(1, lineageOfHuman)
//	t.Add(lineageOfMouse)
//	t.Mark(9606, 10090)
//	if _, err := t.Simplify(); err != nil {
//	    return err
//	}
//	out, err := t.Diagram(tree.RenderOptions{Template: "%rank: %name"})
//
// # Rendering
//
// [Tree.Diagram] draws an indented box-drawing diagram, children in ascending
// ID order, marked nodes emphasized. [Tree.Newick] writes a parenthesized
// form in which a node's label comes before its children's group, e.g.
// "(root,(Homo sapiens,Mus musculus));". This differs from standard Newick,
// where the label follows the group, and is kept on purpose for
// compatibility with existing consumers.
//
// # Least Common Ancestor
//
// [LCA] and [LCAOf] build a tree from the lineages of the query taxa, mark
// them, simplify, and read the answer off the top of the tree: the first node
// below the root that branches or is marked, or the root itself.
//
// # Consistency
//
// The tree trusts its input. When it finds a child ID without a node record,
// or walks into a cycle, it returns an error wrapping [ErrInconsistent]:
// that means the lineage provider broke its contract.
//
// # Concurrency
//
// A Tree is not safe for concurrent use. It belongs to one query; concurrent
// queries build separate trees. All traversals use explicit stacks, so deep
// or adversarial inputs cannot exhaust the goroutine stack.
package tree
