// Package infix implements the precedence-climbing compiler: a pure
// grammar-to-grammar rewriter that expands an operator table into the
// Sequence/Alternative/Repetition/Named atoms of package atom, so the
// interpreter needs no special-cased infix-expression logic at all.
package infix

import (
	"sort"

	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/pegerr"
)

// Assoc is an operator's associativity.
type Assoc int

const (
	Left Assoc = iota
	Right
	NonAssoc
)

// Operator describes one infix operator: the literal that spells it, its
// precedence (higher binds tighter), and its associativity.
type Operator struct {
	Literal string
	Prec    int
	Assoc   Assoc
}

// Compile appends to b the atoms implementing precedence climbing over
// primary (an existing atom index, typically a number or parenthesized
// sub-expression) and the given operator table, returning the index of the
// top-level rule atom. Operators are grouped by precedence level and the
// levels are built from the highest precedence (the deepest level, right
// above primary) out to the lowest, whose rule is returned. Mixing associativities within
// one precedence level is rejected as an InvalidGrammar error.
func Compile(b *atom.Builder, primary int, operators []Operator) (int, error) {
	levels, err := groupLevels(operators)
	if err != nil {
		return 0, err
	}
	if len(levels) == 0 {
		return primary, nil
	}

	// levels is ordered highest precedence first (tightest-binding), so the
	// deepest rule (closest to primary) is built first and each looser
	// level wraps the previous one.
	cur := primary
	for _, lvl := range levels {
		cur, err = compileLevel(b, cur, lvl)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

type level struct {
	prec  int
	assoc Assoc
	ops   []Operator
}

// groupLevels buckets operators by precedence and returns the buckets
// ordered from highest precedence (binds tightest, nearest primary) to
// lowest (outermost rule).
func groupLevels(operators []Operator) ([]level, error) {
	byPrec := map[int][]Operator{}
	for _, op := range operators {
		byPrec[op.Prec] = append(byPrec[op.Prec], op)
	}

	precs := make([]int, 0, len(byPrec))
	for p := range byPrec {
		precs = append(precs, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(precs)))

	levels := make([]level, 0, len(precs))
	for _, p := range precs {
		ops := byPrec[p]
		assoc := ops[0].Assoc
		for _, op := range ops[1:] {
			if op.Assoc != assoc {
				return nil, pegerr.NewInvalidGrammar("precedence level %d mixes associativities", p)
			}
		}
		levels = append(levels, level{prec: p, assoc: assoc, ops: ops})
	}
	return levels, nil
}

// compileLevel emits the rule for one precedence level over the operand
// atom built by the previous (tighter) level. Each level is an Alternative
// of an "operator applied" form and a bare
// pass-through to operand: trying the apply form first and falling back to
// the bare operand keeps a plain operand (no operator present) from ever
// picking up a spurious wrapper, since Named("left", ...) only appears on
// the branch that actually consumes an operator.
//
//	Left:     level = (left=operand (op=O_L right=operand)+) / operand
//	Right:    level = (left=operand op=O_L right=level)       / operand
//	NonAssoc: level = (left=operand op=O_L right=operand)      / operand
func compileLevel(b *atom.Builder, operand int, lvl level) (int, error) {
	opAlt, err := operatorAlternative(b, lvl.ops)
	if err != nil {
		return 0, err
	}

	switch lvl.assoc {
	case Left:
		leftNamed := b.Add(atom.Named("left", operand))
		opNamed := b.Add(atom.Named("op", opAlt))
		rightNamed := b.Add(atom.Named("right", operand))
		tail := b.Add(atom.Sequence(opNamed, rightNamed))
		tailPlus := b.Add(atom.Repetition(tail, 1, atom.NoMax))
		applyForm := b.Add(atom.Sequence(leftNamed, tailPlus))
		return b.Add(atom.Alternative(applyForm, operand)), nil

	case Right:
		// The recursive right-hand side refers back to the level's own
		// rule atom, which does not exist yet, so a placeholder is
		// reserved and patched once the real rule index is known.
		placeholder := b.Add(atom.Ref(0))
		leftNamed := b.Add(atom.Named("left", operand))
		opNamed := b.Add(atom.Named("op", opAlt))
		rightNamed := b.Add(atom.Named("right", placeholder))
		applyForm := b.Add(atom.Sequence(leftNamed, opNamed, rightNamed))
		rule := b.Add(atom.Alternative(applyForm, operand))
		b.Patch(placeholder, atom.Ref(rule))
		return rule, nil

	case NonAssoc:
		leftNamed := b.Add(atom.Named("left", operand))
		opNamed := b.Add(atom.Named("op", opAlt))
		rightNamed := b.Add(atom.Named("right", operand))
		applyForm := b.Add(atom.Sequence(leftNamed, opNamed, rightNamed))
		return b.Add(atom.Alternative(applyForm, operand)), nil

	default:
		return 0, pegerr.NewInvalidGrammar("unknown associativity %d", lvl.assoc)
	}
}

// operatorAlternative emits a Str atom per operator literal and, when there
// is more than one operator at a level, wraps them in an Alternative tried
// in the order given (longer literals should be listed first by the caller
// when one is a prefix of another, exactly as Alternative's ordered-choice
// semantics require).
func operatorAlternative(b *atom.Builder, ops []Operator) (int, error) {
	if len(ops) == 0 {
		return 0, pegerr.NewInvalidGrammar("precedence level has no operators")
	}
	ixs := make([]int, len(ops))
	for i, op := range ops {
		if op.Literal == "" {
			return 0, pegerr.NewInvalidGrammar("operator literal must not be empty")
		}
		ixs[i] = b.Add(atom.Str([]byte(op.Literal)))
	}
	if len(ixs) == 1 {
		return ixs[0], nil
	}
	return b.Add(atom.Alternative(ixs...)), nil
}
