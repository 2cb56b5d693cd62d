// Package render groups the graphical renderers of taxonomy trees.
//
// The text renderers (box diagram and Newick-style string) live with the
// tree itself in [tree]. This package tree holds the renderers that need
// third-party tooling:
//
//   - [nodelink]: Graphviz DOT, SVG and PNG output
//
//	dot, err := nodelink.ToDOT(t, nodelink.Options{Template: "%name"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [tree]: github.com/matzehuels/taxtree/pkg/tree
// [nodelink]: github.com/matzehuels/taxtree/pkg/render/nodelink
package render
