// Package pegtest is a small table-driven scenario harness for running
// named grammar/input/expected-output cases, in the style of this
// lineage's grammar test harness: a Tester holding a list of cases, a Run
// method producing one Result per case, and a Result.String that reports
// "Passed"/"Failed <name>" plus a diff.
package pegtest

import (
	"fmt"
	"strings"

	"github.com/nihei9/pegrat/arena"
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/pegdriver"
	"github.com/nihei9/pegrat/pegerr"
)

// Case is one named scenario: a grammar and input, together with either an
// expected s-expression rendering of the successful AST or an expected
// error kind and position. Exactly one of Expected or ExpectErrorSet
// should be set.
type Case struct {
	Name string
	Grammar *atom.Grammar
	Input   string

	// Expected, when non-empty, is the expected s-expression rendering of
	// the successful parse (see Render).
	Expected string

	// ExpectErrorKind is the expected *pegerr.ParseError.Kind, checked only
	// when ExpectErrorSet is true (Failed is Kind's zero value, so the
	// explicit flag distinguishes "no error expected" from "expect Failed").
	ExpectErrorKind pegerr.Kind
	ExpectErrorSet  bool
	ExpectPosition  int
}

// Result is the outcome of running one Case.
type Result struct {
	Name  string
	Error error // non-nil on mismatch or unexpected parse error
	Got   string
	Want  string
}

func (r *Result) String() string {
	if r.Error == nil {
		return fmt.Sprintf("Passed %v", r.Name)
	}
	const indent = "    "
	lines := []string{fmt.Sprintf("Failed %v: %v", r.Name, r.Error)}
	if r.Got != "" || r.Want != "" {
		lines = append(lines,
			fmt.Sprintf("%vwant: %v", indent, r.Want),
			fmt.Sprintf("%vgot:  %v", indent, r.Got),
		)
	}
	return strings.Join(lines, "\n")
}

// Tester holds a list of scenarios to run.
type Tester struct {
	Cases []Case
}

// Run executes every case and returns one Result per case, in order.
func (t *Tester) Run() []*Result {
	rs := make([]*Result, len(t.Cases))
	for i, c := range t.Cases {
		rs[i] = runCase(c)
	}
	return rs
}

func runCase(c Case) *Result {
	ar, node, err := pegdriver.Parse(c.Grammar, []byte(c.Input))

	if c.ExpectErrorSet {
		perr, ok := err.(*pegerr.ParseError)
		if !ok {
			return &Result{Name: c.Name, Error: fmt.Errorf("expected a ParseError, got %v", err)}
		}
		if perr.Kind != c.ExpectErrorKind || perr.Position != c.ExpectPosition {
			return &Result{
				Name:  c.Name,
				Error: fmt.Errorf("error mismatch"),
				Want:  fmt.Sprintf("%v at %d", c.ExpectErrorKind, c.ExpectPosition),
				Got:   fmt.Sprintf("%v at %d", perr.Kind, perr.Position),
			}
		}
		return &Result{Name: c.Name}
	}

	if err != nil {
		return &Result{Name: c.Name, Error: fmt.Errorf("unexpected parse error: %w", err)}
	}
	got := Render(ar, node)
	if got != c.Expected {
		return &Result{
			Name:  c.Name,
			Error: fmt.Errorf("output mismatch"),
			Want:  c.Expected,
			Got:   got,
		}
	}
	return &Result{Name: c.Name}
}

// Render produces a compact s-expression rendering of an AstNode, used as
// the golden format scenario cases compare against.
func Render(ar *arena.Arena, node arena.AstNode) string {
	var b strings.Builder
	render(&b, ar, node)
	return b.String()
}

func render(b *strings.Builder, ar *arena.Arena, node arena.AstNode) {
	switch node.Kind {
	case arena.KindNil:
		b.WriteString("nil")
	case arena.KindBool:
		fmt.Fprintf(b, "%v", node.Bool)
	case arena.KindInt:
		fmt.Fprintf(b, "%d", node.Int)
	case arena.KindFloat:
		fmt.Fprintf(b, "%v", node.Float)
	case arena.KindStringRef:
		s, err := ar.String(node.StrIndex)
		if err != nil {
			s = "<invalid>"
		}
		fmt.Fprintf(b, "%q", s)
	case arena.KindInputRef:
		fmt.Fprintf(b, "(%d:%d)", node.Offset, node.Offset+node.Length)
	case arena.KindArray:
		b.WriteString("[")
		for i, e := range ar.ArrayElements(node.Start, node.Count) {
			if i > 0 {
				b.WriteString(" ")
			}
			render(b, ar, e)
		}
		b.WriteString("]")
	case arena.KindHash:
		b.WriteString("{")
		for i, e := range ar.HashEntries(node.Start, node.Count) {
			if i > 0 {
				b.WriteString(" ")
			}
			key, err := ar.String(e.Key)
			if err != nil {
				key = "?"
			}
			fmt.Fprintf(b, "%v=", key)
			render(b, ar, e.Value)
		}
		b.WriteString("}")
	default:
		b.WriteString("?")
	}
}
