package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/pipeline"
	"github.com/matzehuels/taxtree/pkg/tree"
)

const internalWarning = `By default internal nodes with a single child are not shown, which may
not be what you want. In that case, use -i/--internal.`

// treeOpts holds the output flags shared by tree and subtree.
type treeOpts struct {
	internal bool   // keep single-child internal nodes
	newick   bool   // shorthand for --output newick
	template string // node display template
	format   string // output format
	file     string // output file, stdout when empty
}

func (o *treeOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.internal, "internal", "i", false, "show all internal nodes")
	cmd.Flags().BoolVarP(&o.newick, "newick", "n", false, "print the tree in Newick format")
	cmd.Flags().StringVarP(&o.template, "format", "f", "",
		"format nodes with this string (%rank, %name and %taxid are replaced)")
	cmd.Flags().StringVar(&o.format, "output", pipeline.FormatText,
		"output format: "+strings.Join(pipeline.FormatNames, ", "))
	cmd.Flags().StringVarP(&o.file, "file", "o", "", "write the output to this file")
	cmd.MarkFlagsMutuallyExclusive("newick", "output")
}

func (o *treeOpts) renderOptions(toTerminal bool) (pipeline.RenderOptions, error) {
	opts := pipeline.RenderOptions{Format: o.format, Template: o.template, Emphasis: tree.Plain}
	if o.newick {
		opts.Format = pipeline.FormatNewick
	}
	if toTerminal && o.file == "" {
		opts.Emphasis = emphasize
	}
	if err := pipeline.ValidateFormat(opts.Format); err != nil {
		return opts, err
	}
	if err := pipeline.ValidateTemplate(opts.Template); err != nil {
		return opts, err
	}
	return opts, nil
}

// write renders t and writes it to the output file or to w.
func (o *treeOpts) write(ctx context.Context, cmd *cobra.Command, t *tree.Tree) error {
	w := cmd.OutOrStdout()
	opts, err := o.renderOptions(w == os.Stdout)
	if err != nil {
		return err
	}
	out, err := pipeline.Render(ctx, t, opts)
	if err != nil {
		return err
	}
	if o.file == "" {
		_, err = w.Write(out)
		return err
	}
	err = pkgio.ExportFile(o.file, func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
	if err != nil {
		return err
	}
	printFile(cmd.ErrOrStderr(), o.file)
	return nil
}

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var opts treeOpts

	cmd := &cobra.Command{
		Use:   "tree TERM...",
		Short: "Make a tree from the root to all given taxa",
		Long:  "Make the tree joining the lineages of all given taxa.\n\n" + internalWarning,
		Example: `  taxtree tree "Homo sapiens" "Pan troglodytes" "Mus musculus"
  taxtree tree 9606 9598 10090 --newick --format "%name_%taxid"
  taxtree tree 9606 9598 --output svg -o apes.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.renderOptions(false); err != nil {
				return err
			}
			return c.withRunner(cmd.Context(), func(r *pipeline.Runner) error {
				t, err := r.Tree(cmd.Context(), args, pipeline.TreeOptions{Internal: opts.internal})
				if err != nil {
					return err
				}
				return opts.write(cmd.Context(), cmd, t)
			})
		},
	}
	opts.register(cmd)

	return cmd
}

// subtreeCommand creates the subtree command.
func (c *CLI) subtreeCommand() *cobra.Command {
	var (
		opts    treeOpts
		species bool
	)

	cmd := &cobra.Command{
		Use:   "subtree TERM",
		Short: "Make a tree with the given taxon as root",
		Long:  "Make the tree of all descendants of the given taxon.\n\n" + internalWarning,
		Example: `  taxtree subtree Hominidae --species
  taxtree subtree 9604 --internal --newick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.renderOptions(false); err != nil {
				return err
			}
			return c.withRunner(cmd.Context(), func(r *pipeline.Runner) error {
				t, err := r.Subtree(cmd.Context(), args[0], pipeline.SubtreeOptions{
					Species:  species,
					Internal: opts.internal,
				})
				if err != nil {
					return err
				}
				return opts.write(cmd.Context(), cmd, t)
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVarP(&species, "species", "s", false, "stop at species instead of tips (which can be subspecies)")

	return cmd
}
