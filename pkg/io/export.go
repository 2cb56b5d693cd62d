package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/taxtree/pkg/taxon"
	"github.com/matzehuels/taxtree/pkg/tree"
)

// NodesHeader is the header row of [WriteNodesCSV].
var NodesHeader = []string{"taxid", "scientific_name", "rank", "division", "genetic_code", "mitochondrial_genetic_code"}

// Document is the JSON form of a tree.
type Document struct {
	Root   int64        `json:"root" yaml:"root"`
	Marked []int64      `json:"marked" yaml:"marked"`
	Nodes  []taxon.Node `json:"nodes" yaml:"nodes"`
	Edges  []Edge       `json:"edges" yaml:"edges"`
}

// Edge is a parent-child pair of a [Document].
type Edge struct {
	Parent int64 `json:"parent" yaml:"parent"`
	Child  int64 `json:"child" yaml:"child"`
}

// TreeDocument converts t into its document form.
func TreeDocument(t *tree.Tree) (Document, error) {
	doc := Document{Root: t.Root(), Marked: t.Marked(), Nodes: []taxon.Node{}, Edges: []Edge{}}
	if doc.Marked == nil {
		doc.Marked = []int64{}
	}
	err := t.Walk(func(n taxon.Node, parent int64, depth int) error {
		doc.Nodes = append(doc.Nodes, n)
		if depth > 0 {
			doc.Edges = append(doc.Edges, Edge{Parent: parent, Child: n.TaxID})
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// WriteTreeJSON encodes t as an indented JSON document.
func WriteTreeJSON(w io.Writer, t *tree.Tree) error {
	doc, err := TreeDocument(t)
	if err != nil {
		return err
	}
	return WriteJSON(w, doc)
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteYAML encodes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// WriteNodesCSV writes one row per node after [NodesHeader].
func WriteNodesCSV(w io.Writer, nodes []taxon.Node) error {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{
			strconv.FormatInt(n.TaxID, 10),
			n.ScientificName(),
			n.Rank,
			n.Division,
			n.GeneticCode,
			n.MitoGeneticCode,
		}
	}
	return WriteCSV(w, NodesHeader, rows)
}

// WriteLineagesCSV writes one row of "rank:name:taxid" cells per lineage.
func WriteLineagesCSV(w io.Writer, lineages [][]taxon.Node) error {
	rows := make([][]string, len(lineages))
	for i, l := range lineages {
		row := make([]string, len(l))
		for j, n := range l {
			row[j] = taxon.LineageCell(n)
		}
		rows[i] = row
	}
	return WriteCSV(w, nil, rows)
}

// WriteCSV writes header, unless it is nil, followed by rows. Rows may differ
// in length.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ExportFile creates path and fills it with write.
func ExportFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
