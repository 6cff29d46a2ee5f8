// Package pegspec is the flat, JSON-tagged wire representation of a
// grammar: the compatibility contract a DSL builder or persistence layer
// uses to hand the engine a grammar without sharing Go source, mirroring
// how this lineage represents a compiled table for cross-process transport.
package pegspec

import (
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/pegerr"
)

// Grammar is the wire form of atom.Grammar: an ordered list of tagged
// Atom records plus a root index, every cross-reference expressed as a
// plain integer, never a pointer.
type Grammar struct {
	Atoms []Atom `json:"atoms"`
	Root  int    `json:"root"`
}

// Atom is the wire form of one atom.Atom. Kind names the variant; only the
// fields relevant to that variant are populated, the rest omitted.
type Atom struct {
	Kind string `json:"kind"`

	Literal string `json:"literal,omitempty"` // Str
	Pattern string `json:"pattern,omitempty"` // Re
	Target  *int   `json:"target,omitempty"`  // Ref
	Items   []int  `json:"items,omitempty"`   // Sequence, Alternative
	Sub     *int   `json:"sub,omitempty"`     // Repetition, Lookahead, Named, Ignore
	Min     *int   `json:"min,omitempty"`     // Repetition
	Max     *int   `json:"max,omitempty"`     // Repetition, nil means unbounded
	Positive *bool `json:"positive,omitempty"` // Lookahead
	Name    string `json:"name,omitempty"`    // Named
}

var kindNames = map[atom.Kind]string{
	atom.KindStr:         "str",
	atom.KindRe:          "re",
	atom.KindAny:         "any",
	atom.KindRef:         "ref",
	atom.KindSequence:    "sequence",
	atom.KindAlternative: "alternative",
	atom.KindRepetition:  "repetition",
	atom.KindLookahead:   "lookahead",
	atom.KindNamed:       "named",
	atom.KindIgnore:      "ignore",
	atom.KindCut:         "cut",
}

var namesToKind = func() map[string]atom.Kind {
	m := make(map[string]atom.Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

func intPtr(v int) *int     { return &v }
func boolPtr(v bool) *bool  { return &v }

// FromAtomGrammar converts an in-memory atom.Grammar into its wire form.
func FromAtomGrammar(g *atom.Grammar) *Grammar {
	out := &Grammar{
		Atoms: make([]Atom, g.Len()),
		Root:  g.Root,
	}
	for i := 0; i < g.Len(); i++ {
		out.Atoms[i] = fromAtom(g.Atoms[i])
	}
	return out
}

func fromAtom(a atom.Atom) Atom {
	wa := Atom{Kind: kindNames[a.Kind]}
	switch a.Kind {
	case atom.KindStr:
		wa.Literal = string(a.Literal)
	case atom.KindRe:
		wa.Pattern = a.Pattern
	case atom.KindRef:
		wa.Target = intPtr(a.Target)
	case atom.KindSequence, atom.KindAlternative:
		wa.Items = a.Items
	case atom.KindRepetition:
		wa.Sub = intPtr(a.Sub)
		wa.Min = intPtr(a.Min)
		if a.Max != atom.NoMax {
			wa.Max = intPtr(a.Max)
		}
	case atom.KindLookahead:
		wa.Sub = intPtr(a.Sub)
		wa.Positive = boolPtr(a.Positive)
	case atom.KindNamed:
		wa.Sub = intPtr(a.Sub)
		wa.Name = a.Name
	case atom.KindIgnore:
		wa.Sub = intPtr(a.Sub)
	}
	return wa
}

// ToAtomGrammar converts a wire Grammar back into an atom.Grammar, running
// the same structural validation atom.Grammar.Validate performs.
func ToAtomGrammar(g *Grammar) (*atom.Grammar, error) {
	atoms := make([]atom.Atom, len(g.Atoms))
	for i, wa := range g.Atoms {
		a, err := toAtom(wa, i)
		if err != nil {
			return nil, err
		}
		atoms[i] = a
	}
	out := atom.NewGrammar(atoms, g.Root)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func toAtom(wa Atom, ix int) (atom.Atom, error) {
	kind, ok := namesToKind[wa.Kind]
	if !ok {
		return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: unknown kind %q", ix, wa.Kind)
	}
	switch kind {
	case atom.KindStr:
		return atom.Str([]byte(wa.Literal)), nil
	case atom.KindRe:
		return atom.Re(wa.Pattern), nil
	case atom.KindAny:
		return atom.Any(), nil
	case atom.KindRef:
		if wa.Target == nil {
			return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: ref missing target", ix)
		}
		return atom.Ref(*wa.Target), nil
	case atom.KindSequence:
		return atom.Sequence(wa.Items...), nil
	case atom.KindAlternative:
		return atom.Alternative(wa.Items...), nil
	case atom.KindRepetition:
		if wa.Sub == nil || wa.Min == nil {
			return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: repetition missing sub/min", ix)
		}
		max := atom.NoMax
		if wa.Max != nil {
			max = *wa.Max
		}
		return atom.Repetition(*wa.Sub, *wa.Min, max), nil
	case atom.KindLookahead:
		if wa.Sub == nil || wa.Positive == nil {
			return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: lookahead missing sub/positive", ix)
		}
		return atom.Lookahead(*wa.Sub, *wa.Positive), nil
	case atom.KindNamed:
		if wa.Sub == nil {
			return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: named missing sub", ix)
		}
		return atom.Named(wa.Name, *wa.Sub), nil
	case atom.KindIgnore:
		if wa.Sub == nil {
			return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: ignore missing sub", ix)
		}
		return atom.Ignore(*wa.Sub), nil
	case atom.KindCut:
		return atom.Cut(), nil
	default:
		return atom.Atom{}, pegerr.NewInvalidGrammar("atom %d: unhandled kind %q", ix, wa.Kind)
	}
}
