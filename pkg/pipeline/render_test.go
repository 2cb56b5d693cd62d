package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	taxerrors "github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

func smallTree() *tree.Tree {
	named := func(id, parent int64, name string) taxon.Node {
		return taxon.Node{TaxID: id, ParentTaxID: parent, Rank: "genus",
			Names: map[string][]string{taxon.ClassScientificName: {name}}}
	}
	t := tree.New(1, []taxon.Node{named(1, 1, "root"), named(2, 1, "Alpha"), named(3, 1, "Beta")})
	t.Mark(3)
	return t
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"txt", false},
		{"newick", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"json", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		template string
		wantErr  bool
	}{
		{"", false},
		{"%name", false},
		{"%rank: %name (%taxid)", false},
		{"just text", true},
	}
	for _, tt := range tests {
		err := ValidateTemplate(tt.template)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTemplate(%q) error = %v, wantErr %v", tt.template, err, tt.wantErr)
		}
		if err != nil && !taxerrors.Is(err, taxerrors.ErrCodeInvalidTemplate) {
			t.Errorf("ValidateTemplate(%q) code = %s", tt.template, taxerrors.GetCode(err))
		}
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	star := func(s string) string { return s + "*" }

	tests := []struct {
		name string
		opts RenderOptions
		want string
	}{
		{"default text", RenderOptions{Template: "%name", Emphasis: star}, " ─┬─ root\n  ├── Alpha\n  └── Beta*\n"},
		{"newick default template", RenderOptions{Format: FormatNewick}, "(root,(Alpha,Beta));\n"},
		{"newick template", RenderOptions{Format: FormatNewick, Template: "%taxid"}, "(1,(2,3));\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(ctx, smallTree(), tt.opts)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got := string(out); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_DOTAndJSON(t *testing.T) {
	ctx := context.Background()

	dot, err := Render(ctx, smallTree(), RenderOptions{Format: FormatDOT})
	if err != nil {
		t.Fatalf("Render(dot) error: %v", err)
	}
	if !strings.Contains(string(dot), "t1 -> t3;") || !strings.Contains(string(dot), `label="Beta"`) {
		t.Errorf("unexpected DOT:\n%s", dot)
	}

	data, err := Render(ctx, smallTree(), RenderOptions{Format: FormatJSON})
	if err != nil {
		t.Fatalf("Render(json) error: %v", err)
	}
	var doc struct {
		Root   int64   `json:"root"`
		Marked []int64 `json:"marked"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Root != 1 || len(doc.Marked) != 1 || doc.Marked[0] != 3 {
		t.Errorf("decoded %+v", doc)
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Render(ctx, smallTree(), RenderOptions{Format: "pdf"}); !taxerrors.Is(err, taxerrors.ErrCodeInvalidFormat) {
		t.Errorf("Render(pdf) error = %v, want INVALID_FORMAT", err)
	}
	if _, err := Render(ctx, smallTree(), RenderOptions{Template: "static"}); !taxerrors.Is(err, taxerrors.ErrCodeInvalidTemplate) {
		t.Errorf("Render(static template) error = %v, want INVALID_TEMPLATE", err)
	}

	bad := tree.New(1, []taxon.Node{{TaxID: 1, ParentTaxID: 1}, {TaxID: 2, ParentTaxID: 1}, {TaxID: 3, ParentTaxID: 1}})
	bad.Add([]taxon.Node{{TaxID: 2, ParentTaxID: 3}})
	if _, err := Render(ctx, bad, RenderOptions{Format: FormatNewick}); !taxerrors.Is(err, taxerrors.ErrCodeInternal) {
		t.Errorf("Render(inconsistent) error = %v, want INTERNAL_ERROR", err)
	}
}
