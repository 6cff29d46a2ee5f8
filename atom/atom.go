// Package atom defines the closed set of PEG operators (Atoms) and the flat,
// index-addressed Grammar pool that holds them. An Atom never refers to
// another Atom by pointer; every cross-reference is an integer index into
// the owning Grammar's Atoms slice. This is what lets a Grammar be built
// once, validated once, and then shared read-only across any number of
// concurrent parses.
package atom

import "github.com/nihei9/pegrat/pegerr"

// Kind is the tag of the Atom closed sum type.
type Kind int

const (
	KindStr Kind = iota
	KindRe
	KindAny
	KindRef
	KindSequence
	KindAlternative
	KindRepetition
	KindLookahead
	KindNamed
	KindIgnore
	KindCut
)

func (k Kind) String() string {
	switch k {
	case KindStr:
		return "Str"
	case KindRe:
		return "Re"
	case KindAny:
		return "Any"
	case KindRef:
		return "Ref"
	case KindSequence:
		return "Sequence"
	case KindAlternative:
		return "Alternative"
	case KindRepetition:
		return "Repetition"
	case KindLookahead:
		return "Lookahead"
	case KindNamed:
		return "Named"
	case KindIgnore:
		return "Ignore"
	case KindCut:
		return "Cut"
	default:
		return "?"
	}
}

// NoMax is the sentinel Repetition.Max value meaning "unbounded".
const NoMax = -1

// Atom is one slot in a Grammar's atom pool. Only the fields relevant to
// Kind are meaningful; the rest are zero. This mirrors a closed sum type in
// a language without one: dispatch is always on Kind, never on a type
// hierarchy.
type Atom struct {
	Kind Kind

	// KindStr
	Literal []byte

	// KindRe
	Pattern string

	// KindRef
	Target int

	// KindSequence, KindAlternative
	Items []int

	// KindRepetition, KindLookahead, KindNamed, KindIgnore: the single
	// child atom index.
	Sub int

	// KindRepetition
	Min int
	Max int // NoMax means unbounded

	// KindLookahead
	Positive bool

	// KindNamed
	Name string
}

// Str builds a Str atom matching the given literal bytes exactly.
func Str(literal []byte) Atom { return Atom{Kind: KindStr, Literal: literal} }

// Re builds a Re atom matching the given regular expression, anchored at
// the current position.
func Re(pattern string) Atom { return Atom{Kind: KindRe, Pattern: pattern} }

// Any builds an atom that consumes one Unicode scalar value.
func Any() Atom { return Atom{Kind: KindAny} }

// Ref builds an indirect reference to the atom at index target.
func Ref(target int) Atom { return Atom{Kind: KindRef, Target: target} }

// Sequence builds an atom that matches each of items in order.
func Sequence(items ...int) Atom { return Atom{Kind: KindSequence, Items: items} }

// Alternative builds an atom that tries each of items in order, succeeding
// on the first match.
func Alternative(items ...int) Atom { return Atom{Kind: KindAlternative, Items: items} }

// Repetition builds an atom matching sub between min and max times. Pass
// NoMax for an unbounded upper bound.
func Repetition(sub, min, max int) Atom {
	return Atom{Kind: KindRepetition, Sub: sub, Min: min, Max: max}
}

// Lookahead builds a zero-width assertion over sub; positive selects
// "succeeds iff sub matches" vs. "succeeds iff sub fails".
func Lookahead(sub int, positive bool) Atom {
	return Atom{Kind: KindLookahead, Sub: sub, Positive: positive}
}

// Named builds an atom that wraps sub's result under a single-key Hash
// named name.
func Named(name string, sub int) Atom { return Atom{Kind: KindNamed, Sub: sub, Name: name} }

// Ignore builds an atom that matches sub but always yields Nil.
func Ignore(sub int) Atom { return Atom{Kind: KindIgnore, Sub: sub} }

// Cut builds the zero-width commit marker.
func Cut() Atom { return Atom{Kind: KindCut} }

// Grammar is an ordered, immutable pool of Atoms plus a root index. Once
// built and validated, a Grammar is safe to share, read-only, across any
// number of concurrent parses.
type Grammar struct {
	Atoms []Atom
	Root  int

	regexes regexCache
}

// NewGrammar wraps atoms/root into a Grammar without validating it. Callers
// that accept grammars from an untrusted source (a DSL builder, a
// deserialized pegspec.Grammar) must call Validate before parsing.
func NewGrammar(atoms []Atom, root int) *Grammar {
	return &Grammar{Atoms: atoms, Root: root}
}

// Len returns the number of atoms in the pool.
func (g *Grammar) Len() int { return len(g.Atoms) }

// Validate checks every structural invariant the interpreter relies on:
// every index is in range, Sequence/Alternative are non-empty, and
// Repetition bounds are consistent. It is cheap enough to call on every
// parse, but callers that reuse a Grammar across many parses should call it
// once after building.
func (g *Grammar) Validate() error {
	n := len(g.Atoms)
	if g.Root < 0 || g.Root >= n {
		return asErr(pegerr.NewInvalidGrammar("root index %d out of range [0, %d)", g.Root, n))
	}
	inRange := func(ix int) bool { return ix >= 0 && ix < n }
	for i, a := range g.Atoms {
		switch a.Kind {
		case KindRef:
			if !inRange(a.Target) {
				return asErr(pegerr.NewInvalidGrammar("atom %d: Ref target %d out of range", i, a.Target))
			}
		case KindSequence, KindAlternative:
			if len(a.Items) == 0 {
				return asErr(pegerr.NewInvalidGrammar("atom %d: %v must have at least one element", i, a.Kind))
			}
			for _, ix := range a.Items {
				if !inRange(ix) {
					return asErr(pegerr.NewInvalidGrammar("atom %d: item index %d out of range", i, ix))
				}
			}
		case KindRepetition:
			if !inRange(a.Sub) {
				return asErr(pegerr.NewInvalidGrammar("atom %d: Repetition sub %d out of range", i, a.Sub))
			}
			if a.Min < 0 {
				return asErr(pegerr.NewInvalidGrammar("atom %d: Repetition min must be >= 0", i))
			}
			if a.Max != NoMax && a.Max < a.Min {
				return asErr(pegerr.NewInvalidGrammar("atom %d: Repetition max %d < min %d", i, a.Max, a.Min))
			}
		case KindLookahead, KindNamed, KindIgnore:
			if !inRange(a.Sub) {
				return asErr(pegerr.NewInvalidGrammar("atom %d: %v sub %d out of range", i, a.Kind, a.Sub))
			}
		case KindStr, KindRe, KindAny, KindCut:
			// no indices to check
		default:
			return asErr(pegerr.NewInvalidGrammar("atom %d: unknown kind %d", i, a.Kind))
		}
	}
	return nil
}

func asErr(e *pegerr.ParseError) error { return e }
