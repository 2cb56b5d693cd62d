package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/pipeline"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var asCSV, asYAML, asJSON bool

	cmd := &cobra.Command{
		Use:   "show TERM...",
		Short: "Show taxa by taxonomy ID or scientific name",
		Long: `Look up taxonomy IDs or scientific names and show the matching taxa.
No search is performed: only exact scientific names match. Underscores in
names are read as spaces.`,
		Example: `  taxtree show 9606
  taxtree show Homo_sapiens "Pan troglodytes" --csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRunner(cmd.Context(), func(r *pipeline.Runner) error {
				nodes, err := r.Nodes(cmd.Context(), args)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				switch {
				case asCSV:
					return pkgio.WriteNodesCSV(w, nodes)
				case asYAML:
					return pkgio.WriteYAML(w, nodes)
				case asJSON:
					return pkgio.WriteJSON(w, nodes)
				}
				return writeDescriptions(w, nodes)
			})
		},
	}

	cmd.Flags().BoolVarP(&asCSV, "csv", "c", false, "output the results as CSV")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "output the results as YAML")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the results as JSON")
	cmd.MarkFlagsMutuallyExclusive("csv", "yaml", "json")

	return cmd
}

// writeDescriptions writes the full description of each node, separated by
// blank lines.
func writeDescriptions(w io.Writer, nodes []taxon.Node) error {
	for i, n := range nodes {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		desc := taxon.Describe(n)
		if !strings.HasSuffix(desc, "\n") {
			desc += "\n"
		}
		if _, err := io.WriteString(w, desc); err != nil {
			return err
		}
	}
	return nil
}
