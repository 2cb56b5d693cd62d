package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

// markedFill is the fill color of marked taxa.
const markedFill = "#ffe08a"

// Options configures node-link diagram rendering.
type Options struct {
	// Template is the display template of node labels. Empty means the
	// scientific name.
	Template string

	// Detailed adds the rank and taxonomy ID below each label.
	Detailed bool
}

// ToDOT converts a tree to Graphviz DOT. Nodes appear in [tree.Tree.Walk]
// order and are named "t<taxid>". It fails if the tree is inconsistent.
func ToDOT(t *tree.Tree, opts Options) (string, error) {
	var nodes, edges bytes.Buffer
	err := t.Walk(func(n taxon.Node, parent int64, depth int) error {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts))}
		if t.IsMarked(n.TaxID) {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", markedFill), "penwidth=2")
		}
		fmt.Fprintf(&nodes, "  t%d [%s];\n", n.TaxID, strings.Join(attrs, ", "))
		if depth > 0 {
			fmt.Fprintf(&edges, "  t%d -> t%d;\n", parent, n.TaxID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
	buf.Write(nodes.Bytes())
	if edges.Len() > 0 {
		buf.WriteString("\n")
		buf.Write(edges.Bytes())
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func fmtLabel(n taxon.Node, opts Options) string {
	label := n.ScientificName()
	if opts.Template != "" {
		label = taxon.Display(n, opts.Template)
	}
	if !opts.Detailed {
		return label
	}
	return label + "\n" + n.Rank + "\ntaxid: " + strconv.FormatInt(n.TaxID, 10)
}

// RenderSVG renders a DOT graph to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the point-based size Graphviz emits with a
// viewBox-relative one so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
