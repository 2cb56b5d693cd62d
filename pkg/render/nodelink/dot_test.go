package nodelink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

func node(id, parent int64, name, rank string) taxon.Node {
	return taxon.Node{
		TaxID:       id,
		ParentTaxID: parent,
		Rank:        rank,
		Names:       map[string][]string{taxon.ClassScientificName: {name}},
	}
}

func hominids() *tree.Tree {
	root := node(1, 1, "root", taxon.RankNone)
	family := node(9604, 1, "Hominidae", "family")
	t := tree.New(1, []taxon.Node{root, family, node(9605, 9604, "Homo", "genus"), node(9606, 9605, "Homo sapiens", "species")})
	t.Add([]taxon.Node{root, family, node(9596, 9604, "Pan", "genus")})
	t.Mark(9606, 9596)
	return t
}

func TestToDOT(t *testing.T) {
	dot, err := ToDOT(hominids(), Options{})
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}

	for _, want := range []string{
		"digraph G {",
		`t1 [label="root"];`,
		`t9606 [label="Homo sapiens", fillcolor="#ffe08a", penwidth=2];`,
		`t9596 [label="Pan", fillcolor="#ffe08a", penwidth=2];`,
		"t1 -> t9604;",
		"t9604 -> t9596;",
		"t9605 -> t9606;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Index(dot, "t9596 [") > strings.Index(dot, "t9605 [") {
		t.Error("children should appear in ascending ID order")
	}
}

func TestToDOT_Labels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"template", Options{Template: "%rank: %name"}, `label="species: Homo sapiens"`},
		{"detailed", Options{Detailed: true}, `label="Homo sapiens\nspecies\ntaxid: 9606"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot, err := ToDOT(hominids(), tt.opts)
			if err != nil {
				t.Fatalf("ToDOT() error: %v", err)
			}
			if !strings.Contains(dot, tt.want) {
				t.Errorf("DOT missing %s:\n%s", tt.want, dot)
			}
		})
	}
}

func TestToDOT_Inconsistent(t *testing.T) {
	root := node(1, 1, "root", taxon.RankNone)
	tr := tree.New(1, []taxon.Node{root, node(2, 1, "a", "genus"), node(3, 1, "b", "genus")})
	tr.Add([]taxon.Node{node(2, 3, "a", "genus")})

	if _, err := ToDOT(tr, Options{}); !errors.Is(err, tree.ErrInconsistent) {
		t.Errorf("ToDOT() error = %v, want ErrInconsistent", err)
	}
}

func TestRenderSVG(t *testing.T) {
	dot, err := ToDOT(hominids(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(context.Background(), dot)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte("Homo sapiens")) {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}

func TestRenderPNG(t *testing.T) {
	dot, err := ToDOT(hominids(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	png, err := RenderPNG(context.Background(), dot)
	if err != nil {
		t.Fatalf("RenderPNG() error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG: % x", png[:min(8, len(png))])
	}
}

func TestRenderSVG_BadDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("RenderSVG() should fail on malformed DOT")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
}
