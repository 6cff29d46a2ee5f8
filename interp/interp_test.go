package interp

import (
	"testing"

	"github.com/nihei9/pegrat/arena"
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/cache"
	"github.com/nihei9/pegrat/pegerr"
)

// run builds a fresh Arena/Cache and drives g against input, with or without
// the packrat cache enabled.
func run(t *testing.T, g *atom.Grammar, input string, useCache bool) (arena.AstNode, error, *arena.Arena) {
	t.Helper()
	ar := arena.New(len(input))
	c := cache.New(16)
	it := New(g, []byte(input), ar, c, DefaultMaxRecursionDepth, useCache)
	node, err := it.Run()
	return node, err, ar
}

func buildGrammar(t *testing.T, add func(b *atom.Builder) int) *atom.Grammar {
	t.Helper()
	b := atom.NewBuilder()
	root := add(b)
	b.SetRoot(root)
	g, err := b.BuildValidated()
	if err != nil {
		t.Fatalf("BuildValidated: %v", err)
	}
	return g
}

func digitExprGrammar(t *testing.T) *atom.Grammar {
	// number <- [0-9]+
	// expr   <- number (('+' / '-') number)*
	return buildGrammar(t, func(b *atom.Builder) int {
		digit := b.Add(atom.Re(`[0-9]`))
		number := b.Add(atom.Named("number", b.Add(atom.Repetition(digit, 1, atom.NoMax))))
		plus := b.Add(atom.Str([]byte("+")))
		minus := b.Add(atom.Str([]byte("-")))
		op := b.Add(atom.Alternative(plus, minus))
		tail := b.Add(atom.Sequence(op, number))
		tailStar := b.Add(atom.Repetition(tail, 0, atom.NoMax))
		return b.Add(atom.Sequence(number, tailStar))
	})
}

// scenario 1: a simple numeric expression parses completely.
func TestDigitExprBasic(t *testing.T) {
	g := digitExprGrammar(t)
	node, err, _ := run(t, g, "12+3-4", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.IsNil() {
		t.Fatalf("expected non-nil result")
	}
}

// trailing unconsumed input yields Incomplete, not Failed.
func TestDigitExprIncomplete(t *testing.T) {
	g := digitExprGrammar(t)
	_, err, _ := run(t, g, "12+3$", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.Incomplete {
		t.Fatalf("expected Incomplete, got %v", perr.Kind)
	}
	if perr.Position != 4 {
		t.Fatalf("expected position 4, got %d", perr.Position)
	}
}

// no alternative matches at all yields Failed at position 0.
func TestDigitExprFailedAtStart(t *testing.T) {
	g := digitExprGrammar(t)
	_, err, _ := run(t, g, "abc", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.Failed {
		t.Fatalf("expected Failed, got %v", perr.Kind)
	}
	if perr.Position != 0 {
		t.Fatalf("expected position 0, got %d", perr.Position)
	}
}

// a trailing operator with no operand is given back by the repetition, so
// the prefix "12" parses and the result is Incomplete at its end (2), not
// Failed at the deepest failure position (3).
func TestDigitExprTrailingOperatorIsIncomplete(t *testing.T) {
	g := digitExprGrammar(t)
	_, err, _ := run(t, g, "12+", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.Incomplete {
		t.Fatalf("expected Incomplete, got %v", perr.Kind)
	}
	if perr.Position != 2 {
		t.Fatalf("expected position 2 (before the trailing operator), got %d", perr.Position)
	}
}

func fooBarGrammar(t *testing.T) *atom.Grammar {
	return buildGrammar(t, func(b *atom.Builder) int {
		foo := b.Add(atom.Str([]byte("foo")))
		bar := b.Add(atom.Str([]byte("bar")))
		return b.Add(atom.Alternative(foo, bar))
	})
}

// ordered choice prefers the first matching alternative.
func TestAlternativeOrderedChoice(t *testing.T) {
	g := fooBarGrammar(t)
	node, err, ar := run(t, g, "foo", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != arena.KindInputRef || node.Offset != 0 || node.Length != 3 {
		t.Fatalf("unexpected node: %+v", node)
	}
	_ = ar
}

// the second alternative is tried only once the first fails.
func TestAlternativeFallsThrough(t *testing.T) {
	g := fooBarGrammar(t)
	node, err, _ := run(t, g, "bar", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != arena.KindInputRef || node.Length != 3 {
		t.Fatalf("unexpected node: %+v", node)
	}
}

// Cut commits the enclosing Alternative, preventing a later
// alternative from being tried even though the cut branch ultimately fails.
func TestCutCommitsAlternative(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		// branch1 <- 'a' ! 'b'      -- commits after matching 'a', then
		//                              requires 'b' to follow
		// branch2 <- 'a' 'c'
		// root    <- (branch1) / branch2
		a := b.Add(atom.Str([]byte("a")))
		cut := b.Add(atom.Cut())
		bb := b.Add(atom.Str([]byte("b")))
		branch1 := b.Add(atom.Sequence(a, cut, bb))
		ac := b.Add(atom.Sequence(b.Add(atom.Str([]byte("a"))), b.Add(atom.Str([]byte("c")))))
		return b.Add(atom.Alternative(branch1, ac))
	})

	// Input "ac" would match the second alternative if Cut did not commit,
	// but branch1's Cut fires as soon as 'a' matches, so branch2 must never
	// run and the whole parse must fail.
	_, err, _ := run(t, g, "ac", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.Failed {
		t.Fatalf("expected Failed (cut must block the second alternative), got %v", perr.Kind)
	}
}

// Without commitment, nested Sequence/Named/Ignore frames must not block a
// Cut from reaching the nearest enclosing Alternative.
func TestCutReachesThroughNestedFrames(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		a := b.Add(atom.Str([]byte("a")))
		cut := b.Add(atom.Cut())
		inner := b.Add(atom.Sequence(a, cut))
		named := b.Add(atom.Named("x", inner))
		bb := b.Add(atom.Str([]byte("b")))
		branch1 := b.Add(atom.Sequence(named, bb))
		branch2 := b.Add(atom.Str([]byte("a")))
		return b.Add(atom.Alternative(branch1, branch2))
	})

	_, err, _ := run(t, g, "a", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.Incomplete && perr.Kind != pegerr.Failed {
		t.Fatalf("expected a terminal parse error, got %v", perr.Kind)
	}
}

// resource-limit scenario 8: an input larger than the configured cap is
// rejected before the interpreter runs at all. Run itself does not enforce
// this guard (pegdriver.Parse does, see its tests), so this test only checks
// the error value the guard produces.
func TestInputTooLargeIsCallerResponsibility(t *testing.T) {
	const limit = 4
	input := "abcdefgh"
	if len(input) <= limit {
		t.Fatalf("test input must exceed the limit")
	}
	err := pegerr.NewInputTooLarge(len(input), limit)
	if err.Kind != pegerr.InputTooLarge {
		t.Fatalf("expected InputTooLarge, got %v", err.Kind)
	}
}

// resource-limit scenario 9: exceeding the recursion-depth guard produces a
// RecursionLimitExceeded error rather than overflowing the Go call stack.
func TestRecursionLimitExceeded(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		// self <- self   (left-recursive: every descent increases depth
		// without consuming input)
		ref := b.Add(atom.Ref(0))
		return ref
	})
	// Patch the placeholder atom 0 to refer to itself.
	g.Atoms[0] = atom.Ref(0)

	ar := arena.New(1)
	c := cache.New(16)
	it := New(g, []byte(""), ar, c, 10, true)
	_, err := it.Run()
	perr, ok := err.(*pegerr.ParseError)
	if !ok {
		t.Fatalf("expected *pegerr.ParseError, got %T (%v)", err, err)
	}
	if perr.Kind != pegerr.RecursionLimitExceeded {
		t.Fatalf("expected RecursionLimitExceeded, got %v", perr.Kind)
	}
	if perr.DepthLimit != 10 {
		t.Fatalf("expected depth limit 10, got %d", perr.DepthLimit)
	}
}

// universal property: memoization must not change the observable result,
// only performance, for any grammar/input pair.
func TestMemoizationEquivalence(t *testing.T) {
	g := digitExprGrammar(t)
	inputs := []string{"12+3-4", "12+3$", "abc", "12+", "0"}
	for _, in := range inputs {
		cached, errCached, _ := run(t, g, in, true)
		uncached, errUncached, _ := run(t, g, in, false)

		cachedErr, cachedIsErr := errCached.(*pegerr.ParseError)
		uncachedErr, uncachedIsErr := errUncached.(*pegerr.ParseError)
		if cachedIsErr != uncachedIsErr {
			t.Fatalf("input %q: cache changed success/failure outcome", in)
		}
		if cachedIsErr {
			if cachedErr.Kind != uncachedErr.Kind || cachedErr.Position != uncachedErr.Position {
				t.Fatalf("input %q: cache changed error (%v/%d vs %v/%d)", in,
					cachedErr.Kind, cachedErr.Position, uncachedErr.Kind, uncachedErr.Position)
			}
			continue
		}
		if cached.Kind != uncached.Kind {
			t.Fatalf("input %q: cache changed result node kind (%v vs %v)", in, cached.Kind, uncached.Kind)
		}
	}
}

// universal property: positive and negative Lookahead never consume input
// and never contribute a node to the result.
func TestLookaheadIsZeroWidth(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		a := b.Add(atom.Str([]byte("a")))
		la := b.Add(atom.Lookahead(a, true))
		return b.Add(atom.Sequence(la, a))
	})
	node, err, _ := run(t, g, "a", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The lookahead contributes Nil, so only the second 'a' match survives
	// the merge, collapsing the Sequence to that single child.
	if node.Kind != arena.KindInputRef || node.Offset != 0 || node.Length != 1 {
		t.Fatalf("unexpected node: %+v", node)
	}
}

func TestNegativeLookaheadRejectsMatch(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		a := b.Add(atom.Str([]byte("a")))
		notA := b.Add(atom.Lookahead(a, false))
		return notA
	})
	_, err, _ := run(t, g, "a", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok || perr.Kind != pegerr.Failed {
		t.Fatalf("expected Failed, got %v", err)
	}
}

// universal property: Ignore suppresses the sub-match's value but preserves
// its consumed range.
func TestIgnoreSuppressesValue(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		ws := b.Add(atom.Ignore(b.Add(atom.Str([]byte(" ")))))
		a := b.Add(atom.Named("a", b.Add(atom.Str([]byte("a")))))
		bAtom := b.Add(atom.Named("b", b.Add(atom.Str([]byte("b")))))
		return b.Add(atom.Sequence(a, ws, bAtom))
	})
	node, err, ar := run(t, g, "a b", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != arena.KindHash {
		t.Fatalf("expected merged Hash, got %v", node.Kind)
	}
	entries := ar.HashEntries(node.Start, node.Count)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (ignored whitespace excluded), got %d", len(entries))
	}
}

// universal property: Named wraps its value (or, for a value-less match,
// the consumed span) under its label, and merges into an enclosing Hash.
func TestNamedMergeIntoHash(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		key := b.Add(atom.Named("key", b.Add(atom.Re(`[a-z]+`))))
		sep := b.Add(atom.Ignore(b.Add(atom.Str([]byte(":")))))
		val := b.Add(atom.Named("value", b.Add(atom.Re(`[0-9]+`))))
		return b.Add(atom.Sequence(key, sep, val))
	})
	node, err, ar := run(t, g, "count:42", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != arena.KindHash {
		t.Fatalf("expected Hash, got %v", node.Kind)
	}
	entries := ar.HashEntries(node.Start, node.Count)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

// universal property: a repetition with no matches at all, when Min is 0,
// succeeds with a Nil result and does not advance position.
func TestRepetitionZeroMatches(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		a := b.Add(atom.Str([]byte("a")))
		return b.Add(atom.Repetition(a, 0, atom.NoMax))
	})
	node, err, _ := run(t, g, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !node.IsNil() {
		t.Fatalf("expected Nil, got %+v", node)
	}
}

// universal property: a repetition below its Min fails and restores
// position to where the repetition started.
func TestRepetitionBelowMinFails(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		a := b.Add(atom.Str([]byte("a")))
		return b.Add(atom.Repetition(a, 2, atom.NoMax))
	})
	_, err, _ := run(t, g, "a", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok || perr.Kind != pegerr.Incomplete && perr.Kind != pegerr.Failed {
		t.Fatalf("expected a terminal error, got %v", err)
	}
}

// a zero-width repeatable sub-atom must not loop forever. At the end of the
// input, !Any succeeds on every attempt without consuming anything.
func TestRepetitionZeroWidthTerminates(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		la := b.Add(atom.Lookahead(b.Add(atom.Any()), false))
		return b.Add(atom.Repetition(la, 0, atom.NoMax))
	})
	node, err, _ := run(t, g, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !node.IsNil() {
		t.Fatalf("expected Nil (lookahead contributes nothing), got %+v", node)
	}
}

func TestAnyAtEndOfInputFails(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		return b.Add(atom.Any())
	})
	_, err, _ := run(t, g, "", true)
	perr, ok := err.(*pegerr.ParseError)
	if !ok || perr.Kind != pegerr.Failed {
		t.Fatalf("expected Failed, got %v", err)
	}
}

func TestRefDescendsIntoTarget(t *testing.T) {
	g := buildGrammar(t, func(b *atom.Builder) int {
		target := b.Add(atom.Str([]byte("x")))
		return b.Add(atom.Ref(target))
	})
	node, err, _ := run(t, g, "x", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != arena.KindInputRef {
		t.Fatalf("unexpected node: %+v", node)
	}
}
