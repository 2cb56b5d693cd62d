package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/pipeline"
)

// lcaHeader is the header row of "lca --csv".
var lcaHeader = []string{"name1", "taxid1", "name2", "taxid2", "lca_name", "lca_taxid"}

// lcaCommand creates the lca command.
func (c *CLI) lcaCommand() *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "lca TERM TERM...",
		Short: "Print the least common ancestor of taxa",
		Long: `Print the least common ancestor (LCA) of two taxa. With more than two
taxa, print the LCA of every pair.`,
		Example: `  taxtree lca "Homo sapiens" "Mus musculus"
  taxtree lca 9606 9598 10090 --csv`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRunner(cmd.Context(), func(r *pipeline.Runner) error {
				results, err := r.LCAPairs(cmd.Context(), args)
				if err != nil {
					return err
				}
				if asCSV {
					return writeLCACSV(cmd.OutOrStdout(), results)
				}
				return writeLCAs(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().BoolVarP(&asCSV, "csv", "c", false, "output the results as CSV with a header row")

	return cmd
}

func writeLCAs(w io.Writer, results []pipeline.LCAResult) error {
	for _, res := range results {
		_, err := fmt.Fprintf(w, "LCA(%s, %s) = %s\n",
			res.A.ScientificName(), res.B.ScientificName(), res.LCA.ScientificName())
		if err != nil {
			return err
		}
	}
	return nil
}

func writeLCACSV(w io.Writer, results []pipeline.LCAResult) error {
	rows := make([][]string, len(results))
	for i, res := range results {
		rows[i] = []string{
			res.A.ScientificName(), strconv.FormatInt(res.A.TaxID, 10),
			res.B.ScientificName(), strconv.FormatInt(res.B.TaxID, 10),
			res.LCA.ScientificName(), strconv.FormatInt(res.LCA.TaxID, 10),
		}
	}
	return pkgio.WriteCSV(w, lcaHeader, rows)
}
