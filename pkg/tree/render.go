package tree

import (
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/taxtree/pkg/taxon"
)

// Box-drawing pieces of the diagram.
const (
	connBranch = "─┬─ " // node with children
	connLeaf   = "── "  // leaf
	connMiddle = " ├"   // intermediate sibling
	connLast   = " └"   // last sibling
	barOpen    = "│"    // an ancestor still has siblings below
	barClosed  = " "
)

// RenderOptions controls how node labels are produced.
type RenderOptions struct {
	// Template is passed to [taxon.Display]. Empty means the full
	// multi-line description.
	Template string

	// Emphasis wraps the labels of marked nodes in [Tree.Diagram].
	// Nil means [Bold]. Use [Plain] to disable emphasis.
	Emphasis func(string) string
}

// Bold wraps s in ANSI bold escape codes.
func Bold(s string) string { return "\x1b[1m" + s + "\x1b[0m" }

// Plain returns s unchanged.
func Plain(s string) string { return s }

func (o RenderOptions) label(n taxon.Node) string {
	return taxon.Display(n, o.Template)
}

func (o RenderOptions) emphasis() func(string) string {
	if o.Emphasis == nil {
		return Bold
	}
	return o.Emphasis
}

// Diagram renders the tree as an indented box-drawing diagram.
//
// Nodes are written in pre-order, children in ascending ID order. A node with
// children is drawn with "─┬─", a leaf with "──". The prefix passed to a
// child keeps a "│" for every ancestor that still has siblings to come, so
// the output for a root with children 2 and 3, where 2 has child 4, is:
//
//	 ─┬─ root
//	  ├─┬─ two
//	  │ └── four
//	  └── three
//
// Every line ends with a newline. The output is deterministic for a given
// set of nodes, edges and marks.
func (t *Tree) Diagram(opts RenderOptions) (string, error) {
	type frame struct {
		id           int64
		prefix       string
		intermediate bool
	}
	emph := opts.emphasis()
	seen := make(idSet)
	stack := []frame{{id: t.root, prefix: " "}}

	var b strings.Builder
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := t.visit(f.id, seen)
		if err != nil {
			return "", err
		}
		text := opts.label(n)
		if t.marked.has(f.id) {
			text = emph(text)
		}

		kids := t.Children(f.id)
		b.WriteString(f.prefix)
		if len(kids) > 0 {
			b.WriteString(connBranch)
		} else {
			b.WriteString(connLeaf)
		}
		b.WriteString(text)
		b.WriteByte('\n')

		base := trimLastRune(f.prefix)
		if f.intermediate {
			base += barOpen
		} else {
			base += barClosed
		}
		for i := len(kids) - 1; i >= 0; i-- {
			last := i == len(kids)-1
			conn := connMiddle
			if last {
				conn = connLast
			}
			stack = append(stack, frame{id: kids[i], prefix: base + conn, intermediate: !last})
		}
	}
	return b.String(), nil
}

// Newick renders the tree in the parenthesized form
// "(" + expand(root) + ");", where expand(n) is the label of n followed, if
// n has children, by ",(" + the comma-joined expansions of its children +
// ")". Children are in ascending ID order. Marks are not shown.
//
// The label precedes its children's group, unlike standard Newick.
func (t *Tree) Newick(opts RenderOptions) (string, error) {
	type item struct {
		id  int64
		lit string
	}
	seen := make(idSet)
	stack := []item{{lit: ");"}, {id: t.root}}

	var b strings.Builder
	b.WriteByte('(')
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.lit != "" {
			b.WriteString(it.lit)
			continue
		}

		n, err := t.visit(it.id, seen)
		if err != nil {
			return "", err
		}
		b.WriteString(opts.label(n))

		kids := t.Children(it.id)
		if len(kids) == 0 {
			continue
		}
		b.WriteString(",(")
		stack = append(stack, item{lit: ")"})
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, item{id: kids[i]})
			if i > 0 {
				stack = append(stack, item{lit: ","})
			}
		}
	}
	return b.String(), nil
}

func trimLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
