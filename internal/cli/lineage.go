package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/pipeline"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// lineageCommand creates the lineage command.
func (c *CLI) lineageCommand() *cobra.Command {
	var ranks, asCSV bool

	cmd := &cobra.Command{
		Use:   "lineage TERM...",
		Short: "Print the path from the root to each taxon",
		Long: `Print the lineage of each taxon, i.e. every node on the path from the
root down to it.

With --csv, each lineage is one row whose cells have the form
rank:scientific name:taxid; rows may have different lengths.`,
		Example: `  taxtree lineage 9606 --ranks
  taxtree lineage "Escherichia coli" --csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRunner(cmd.Context(), func(r *pipeline.Runner) error {
				lineages, err := r.LineagesOf(cmd.Context(), args, ranks)
				if err != nil {
					return err
				}
				if asCSV {
					return pkgio.WriteLineagesCSV(cmd.OutOrStdout(), lineages)
				}
				return writeLineages(cmd.OutOrStdout(), lineages)
			})
		},
	}

	cmd.Flags().BoolVarP(&ranks, "ranks", "r", false, "keep only the nodes that have a named rank")
	cmd.Flags().BoolVarP(&asCSV, "csv", "c", false, "output the results as CSV")

	return cmd
}

// writeLineages draws each lineage as a staircase: "root" first, then one
// line per node, indented one more space than the previous one.
func writeLineages(w io.Writer, lineages [][]taxon.Node) error {
	bw := bufio.NewWriter(w)
	for _, lineage := range lineages {
		for i, n := range lineage {
			switch {
			case i == 0:
				bw.WriteString("root\n")
			case i == len(lineage)-1:
				bw.WriteString(strings.Repeat(" ", i+1) + "└── " + taxon.LineageLabel(n) + "\n")
			default:
				bw.WriteString(strings.Repeat(" ", i+1) + "└┬─ " + taxon.LineageLabel(n) + "\n")
			}
		}
	}
	return bw.Flush()
}
