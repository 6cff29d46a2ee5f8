// Package interp implements the recursive-descent PEG evaluator: the
// component that actually walks an atom.Grammar against an input, driven by
// the semantics of each atom variant, consulting and populating the packrat
// cache as it goes, and tracking the deepest failure position for error
// reporting.
package interp

import (
	"bytes"
	"unicode/utf8"

	"github.com/nihei9/pegrat/arena"
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/cache"
	"github.com/nihei9/pegrat/pegerr"
)

// DefaultMaxRecursionDepth is used when no explicit limit is configured.
// Zero means unlimited.
const DefaultMaxRecursionDepth = 1000

// Interpreter evaluates one Grammar against one input. An Interpreter
// instance is single-use: construct one per parse with New, call Run once.
// It is not safe for concurrent use; each concurrent parse must have its
// own Interpreter, Arena and Cache (the Grammar may be shared).
type Interpreter struct {
	g        *atom.Grammar
	input    []byte
	arena    *arena.Arena
	cache    *cache.Cache
	useCache bool
	maxDepth int

	deepest  int
	cutStack []bool
}

// New constructs an Interpreter. maxDepth <= 0 means unlimited recursion
// depth. useCache disables the packrat cache when false, which changes
// performance but must never change the observable result (see the
// memoization-equivalence property).
func New(g *atom.Grammar, input []byte, ar *arena.Arena, c *cache.Cache, maxDepth int, useCache bool) *Interpreter {
	return &Interpreter{
		g:        g,
		input:    input,
		arena:    ar,
		cache:    c,
		useCache: useCache,
		maxDepth: maxDepth,
	}
}

// Run starts the parse from the grammar's root atom at position 0 and
// depth 0. The input-size guard is the caller's responsibility (it happens
// before an Arena/Cache even exist); Run only drives the interpreter itself.
func (it *Interpreter) Run() (arena.AstNode, error) {
	ok, end, node, err := it.eval(it.g.Root, 0, 0)
	if err != nil {
		return arena.Nil, err
	}
	if !ok {
		return arena.Nil, pegerr.NewFailed(it.deepest)
	}
	if end < len(it.input) {
		return arena.Nil, pegerr.NewIncomplete(end)
	}
	return node, nil
}

// noteFailure updates the deepest-failure scalar: the furthest position any
// atom failed at, which becomes the reported position of a terminal Failed
// error. It is updated for every failing atom, including ones nested inside
// a Lookahead or a losing Alternative branch — those failures are not
// externalized as their own ParseError, but they do still count as "how far
// the interpreter got" for diagnostic purposes.
func (it *Interpreter) noteFailure(pos int) {
	if pos > it.deepest {
		it.deepest = pos
	}
}

func cacheable(k atom.Kind) bool {
	return k != atom.KindLookahead && k != atom.KindCut
}

// eval is the single recursive entry point: every descent into an atom,
// including the initial call from Run, goes through here so that the
// recursion-depth guard, the packrat cache, and deepest-failure tracking
// apply uniformly regardless of which variant is being evaluated.
func (it *Interpreter) eval(atomIx, pos, depth int) (ok bool, end int, node arena.AstNode, err error) {
	if it.maxDepth > 0 && depth > it.maxDepth {
		return false, pos, arena.Nil, pegerr.NewRecursionLimitExceeded(depth, it.maxDepth)
	}
	if atomIx < 0 || atomIx >= len(it.g.Atoms) {
		return false, pos, arena.Nil, pegerr.NewInvalidGrammar("atom index %d out of range", atomIx)
	}
	a := it.g.Atoms[atomIx]

	if it.useCache && cacheable(a.Kind) {
		if outcome, hit := it.cache.Lookup(pos, atomIx); hit {
			if !outcome.Success {
				it.noteFailure(pos)
				return false, pos, arena.Nil, nil
			}
			n, derr := it.arena.Node(outcome.NodeRef)
			if derr != nil {
				return false, pos, arena.Nil, derr
			}
			return true, outcome.EndPos, n, nil
		}
	}

	// A Cut executed during this atom's evaluation commits the enclosing
	// Alternative, and a cache hit cannot replay that commitment, so such an
	// outcome is not memoized. The enclosing frame's flag is cleared for the
	// call so this atom's own Cut can be detected, then restored or set.
	cutBefore := false
	if len(it.cutStack) > 0 {
		cutBefore = it.cutStack[len(it.cutStack)-1]
		it.cutStack[len(it.cutStack)-1] = false
	}
	ok, end, node, err = it.evalKind(a, atomIx, pos, depth)
	cutFired := false
	if len(it.cutStack) > 0 {
		cutFired = it.cutStack[len(it.cutStack)-1]
		it.cutStack[len(it.cutStack)-1] = cutBefore || cutFired
	}
	if err != nil {
		return false, pos, arena.Nil, err
	}

	if it.useCache && cacheable(a.Kind) && !cutFired {
		if ok {
			ref := it.arena.PushNode(node)
			it.cache.Insert(pos, atomIx, cache.Outcome{Success: true, EndPos: end, NodeRef: ref})
		} else {
			it.cache.Insert(pos, atomIx, cache.Outcome{Success: false})
		}
	}

	if !ok {
		it.noteFailure(pos)
	}
	return ok, end, node, nil
}

func (it *Interpreter) evalKind(a atom.Atom, atomIx, pos, depth int) (bool, int, arena.AstNode, error) {
	switch a.Kind {
	case atom.KindStr:
		return it.evalStr(a, pos)
	case atom.KindRe:
		return it.evalRe(a, atomIx, pos)
	case atom.KindAny:
		return it.evalAny(pos)
	case atom.KindRef:
		return it.eval(a.Target, pos, depth+1)
	case atom.KindSequence:
		return it.evalSequence(a, pos, depth)
	case atom.KindAlternative:
		return it.evalAlternative(a, pos, depth)
	case atom.KindRepetition:
		return it.evalRepetition(a, pos, depth)
	case atom.KindLookahead:
		return it.evalLookahead(a, pos, depth)
	case atom.KindNamed:
		return it.evalNamed(a, pos, depth)
	case atom.KindIgnore:
		return it.evalIgnore(a, pos, depth)
	case atom.KindCut:
		if len(it.cutStack) > 0 {
			it.cutStack[len(it.cutStack)-1] = true
		}
		return true, pos, arena.Nil, nil
	default:
		return false, pos, arena.Nil, pegerr.NewInternal("unknown atom kind %d at index %d", a.Kind, atomIx)
	}
}

func (it *Interpreter) evalStr(a atom.Atom, pos int) (bool, int, arena.AstNode, error) {
	if bytes.HasPrefix(it.input[pos:], a.Literal) {
		end := pos + len(a.Literal)
		return true, end, arena.NewInputRef(pos, len(a.Literal)), nil
	}
	return false, pos, arena.Nil, nil
}

func (it *Interpreter) evalRe(a atom.Atom, atomIx, pos int) (bool, int, arena.AstNode, error) {
	re, err := it.g.CompiledRegex(atomIx)
	if err != nil {
		return false, pos, arena.Nil, pegerr.NewInvalidGrammar("atom %d: invalid regular expression %q: %v", atomIx, a.Pattern, err)
	}
	loc := re.FindIndex(it.input[pos:])
	if loc == nil || loc[0] != 0 {
		return false, pos, arena.Nil, nil
	}
	length := loc[1]
	return true, pos + length, arena.NewInputRef(pos, length), nil
}

func (it *Interpreter) evalAny(pos int) (bool, int, arena.AstNode, error) {
	if pos >= len(it.input) {
		return false, pos, arena.Nil, nil
	}
	_, size := utf8.DecodeRune(it.input[pos:])
	return true, pos + size, arena.NewInputRef(pos, size), nil
}

func (it *Interpreter) evalSequence(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	start := pos
	cur := pos
	it.arena.PushArrayScratch()
	for _, sub := range a.Items {
		ok, end, node, err := it.eval(sub, cur, depth+1)
		if err != nil {
			it.arena.DiscardArrayScratch()
			return false, start, arena.Nil, err
		}
		if !ok {
			it.arena.DiscardArrayScratch()
			return false, start, arena.Nil, nil
		}
		if !node.IsNil() {
			it.arena.PushArrayElement(node)
		}
		cur = end
	}
	return true, cur, it.finishMerge(), nil
}

func (it *Interpreter) evalRepetition(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	start := pos
	cur := pos
	count := 0
	it.arena.PushArrayScratch()
	for a.Max == atom.NoMax || count < a.Max {
		before := cur
		ok, end, node, err := it.eval(a.Sub, cur, depth+1)
		if err != nil {
			it.arena.DiscardArrayScratch()
			return false, start, arena.Nil, err
		}
		if !ok {
			cur = before
			break
		}
		if !node.IsNil() {
			it.arena.PushArrayElement(node)
		}
		count++
		cur = end
		if end == before {
			// A zero-width match would otherwise repeat forever; one
			// empty match is enough to satisfy a min of 0 or 1, and
			// trying again can never fail or progress differently.
			break
		}
	}
	if count < a.Min {
		it.arena.DiscardArrayScratch()
		return false, start, arena.Nil, nil
	}
	return true, cur, it.finishMerge(), nil
}

func (it *Interpreter) evalAlternative(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	for _, sub := range a.Items {
		it.cutStack = append(it.cutStack, false)
		ok, end, node, err := it.eval(sub, pos, depth+1)
		cutHit := it.cutStack[len(it.cutStack)-1]
		it.cutStack = it.cutStack[:len(it.cutStack)-1]
		if err != nil {
			return false, pos, arena.Nil, err
		}
		if ok {
			return true, end, node, nil
		}
		if cutHit {
			break
		}
	}
	return false, pos, arena.Nil, nil
}

func (it *Interpreter) evalLookahead(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	ok, _, _, err := it.eval(a.Sub, pos, depth+1)
	if err != nil {
		return false, pos, arena.Nil, err
	}
	if ok == a.Positive {
		return true, pos, arena.Nil, nil
	}
	return false, pos, arena.Nil, nil
}

func (it *Interpreter) evalNamed(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	ok, end, node, err := it.eval(a.Sub, pos, depth+1)
	if err != nil || !ok {
		return false, pos, arena.Nil, err
	}
	value := node
	if node.IsNil() {
		value = arena.NewInputRef(pos, end-pos)
	}
	key := it.arena.InternString([]byte(a.Name))
	it.arena.PushHashScratch()
	it.arena.PushHashEntry(key, value)
	start, count := it.arena.FinishHash()
	return true, end, arena.NewHash(start, count), nil
}

func (it *Interpreter) evalIgnore(a atom.Atom, pos, depth int) (bool, int, arena.AstNode, error) {
	ok, end, _, err := it.eval(a.Sub, pos, depth+1)
	if err != nil || !ok {
		return false, pos, arena.Nil, err
	}
	return true, end, arena.Nil, nil
}

// finishMerge collapses the innermost open array scratch frame: Nil if
// empty, the bare child if exactly one, a key-wise merged Hash if every
// child is itself a Hash, otherwise an Array preserving order.
func (it *Interpreter) finishMerge() arena.AstNode {
	elems := it.arena.ArrayScratchElements()
	switch len(elems) {
	case 0:
		it.arena.DiscardArrayScratch()
		return arena.Nil
	case 1:
		n := elems[0]
		it.arena.DiscardArrayScratch()
		return n
	}

	allHash := true
	for _, e := range elems {
		if e.Kind != arena.KindHash {
			allHash = false
			break
		}
	}
	if allHash {
		hashes := make([]arena.AstNode, len(elems))
		copy(hashes, elems)
		it.arena.DiscardArrayScratch()
		it.arena.PushHashScratch()
		for _, h := range hashes {
			for _, ent := range it.arena.HashEntries(h.Start, h.Count) {
				it.arena.PushHashEntry(ent.Key, ent.Value)
			}
		}
		start, count := it.arena.FinishHash()
		return arena.NewHash(start, count)
	}

	start, count := it.arena.FinishArray()
	return arena.NewArray(start, count)
}
