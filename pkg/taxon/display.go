package taxon

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Template placeholders recognized by [Display].
const (
	PlaceholderTaxID = "%taxid"
	PlaceholderName  = "%name"
	PlaceholderRank  = "%rank"
)

// Common templates.
const (
	TemplateName     = PlaceholderName
	TemplateRankName = PlaceholderRank + ": " + PlaceholderName
)

// Display returns the display text of n. With an empty template it is the
// full description from [Describe]. Otherwise %taxid, %name and %rank are
// substituted literally, in that order, without escaping.
func Display(n Node, template string) string {
	if template == "" {
		return Describe(n)
	}
	s := strings.ReplaceAll(template, PlaceholderTaxID, strconv.FormatInt(n.TaxID, 10))
	s = strings.ReplaceAll(s, PlaceholderName, n.ScientificName())
	return strings.ReplaceAll(s, PlaceholderRank, n.Rank)
}

// Describe returns the multi-section description of n: a name and rank
// header with an underline, the taxonomy ID, synonyms, common names,
// authorities, division, genetic codes and comments.
func Describe(n Node) string {
	var b strings.Builder

	header := fmt.Sprintf("%s - %s", n.ScientificName(), n.Rank)
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(header)))
	fmt.Fprintf(&b, "\nNCBI Taxonomy ID: %d\n", n.TaxID)

	writeList(&b, "Same as:", n.Names[ClassSynonym])
	if names := n.Names[ClassGenbankCommonName]; len(names) > 0 {
		fmt.Fprintf(&b, "Commonly named %s.\n", names[0])
	}
	writeList(&b, "Also known as:", n.Names[ClassCommonName])
	writeList(&b, "First description:", n.Names[ClassAuthority])

	fmt.Fprintf(&b, "Part of the %s.\n", n.Division)
	fmt.Fprintf(&b, "Uses the %s genetic code.\n", n.GeneticCode)
	if n.MitoGeneticCode != "" {
		fmt.Fprintf(&b, "Its mitochondria use the %s genetic code.\n", n.MitoGeneticCode)
	}
	if n.Comments != "" {
		fmt.Fprintf(&b, "\nComments: %s", n.Comments)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteByte('\n')
	for _, it := range items {
		fmt.Fprintf(b, "* %s\n", it)
	}
}

// LineageLabel formats a node the way lineage listings show it:
// "rank: name (taxid: id)".
func LineageLabel(n Node) string {
	return fmt.Sprintf("%s: %s (taxid: %d)", n.Rank, n.ScientificName(), n.TaxID)
}

// LineageCell formats a node as a compact "rank:name:taxid" cell.
func LineageCell(n Node) string {
	return fmt.Sprintf("%s:%s:%d", n.Rank, n.ScientificName(), n.TaxID)
}
