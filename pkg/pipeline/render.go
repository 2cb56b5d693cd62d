package pipeline

import (
	"bytes"
	"context"
	"fmt"

	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/render/nodelink"
	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

// RenderOptions configures [Render].
type RenderOptions struct {
	// Format is one of the Format constants. Empty means FormatText.
	Format string
	// Template is the display template of each node. For FormatNewick an
	// empty template means "%name"; for graphical formats the scientific
	// name; for FormatText the full description.
	Template string
	// Emphasis styles marked nodes in FormatText. Nil means ANSI bold.
	Emphasis func(string) string
}

// Render encodes t in the requested format. Text formats end with a
// newline.
func Render(ctx context.Context, t *tree.Tree, opts RenderOptions) ([]byte, error) {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}
	if err := ValidateTemplate(opts.Template); err != nil {
		return nil, err
	}

	out, err := render(ctx, t, opts)
	if err != nil {
		return nil, inconsistent(fmt.Errorf("render %s: %w", opts.Format, err))
	}
	return out, nil
}

func render(ctx context.Context, t *tree.Tree, opts RenderOptions) ([]byte, error) {
	switch opts.Format {
	case FormatText:
		s, err := t.Diagram(tree.RenderOptions{Template: opts.Template, Emphasis: opts.Emphasis})
		return []byte(s), err
	case FormatNewick:
		if opts.Template == "" {
			opts.Template = taxon.TemplateName
		}
		s, err := t.Newick(tree.RenderOptions{Template: opts.Template})
		if err != nil {
			return nil, err
		}
		return []byte(s + "\n"), nil
	case FormatJSON:
		var buf bytes.Buffer
		err := pkgio.WriteTreeJSON(&buf, t)
		return buf.Bytes(), err
	}

	dot, err := nodelink.ToDOT(t, nodelink.Options{Template: opts.Template})
	if err != nil {
		return nil, err
	}
	switch opts.Format {
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot)
	}
	return []byte(dot), nil
}
