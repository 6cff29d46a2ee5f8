// Package arena implements the append-only pools that back every AST
// produced by the interpreter: interned strings, contiguous array/hash
// element runs, and the scratch stacks used to accumulate them before they
// are committed. An Arena is created sized to one parse's input and is
// never shared between concurrent parses.
package arena

import "github.com/nihei9/pegrat/pegerr"

// stringRecord is the (offset, length) entry addressed by a string pool
// index.
type stringRecord struct {
	offset int
	length int
}

// Arena owns the four pools described by the data model: string bytes,
// array pool, hash pool, and scratch stacks. All four are append-only
// during a parse; Reset returns the high-water marks to zero (the string
// pool's only on request), invalidating every AstNode produced so far.
// Reset(false) is O(1); Reset(true) also empties the interning table one
// entry at a time.
type Arena struct {
	// string pool
	strBytes []byte
	strTable []stringRecord
	strIndex map[string]int

	// array pool
	arrayPool []AstNode

	// hash pool
	hashPool []HashEntry

	// scratch stacks, one frame per nesting depth the interpreter is
	// currently accumulating into. Each Push*Scratch opens a fresh, empty
	// frame; the element buffers of popped frames are not reused.
	arrayScratch [][]AstNode
	hashScratch  [][]HashEntry

	// nodePool holds the AstNode for every outcome the packrat cache
	// memoizes. The cache entry's "AST node reference" field is an index
	// into this pool, not the node's fields packed inline, since AstNode is
	// wider than the cache entry's packed word.
	nodePool []AstNode
}

// New creates an Arena pre-sized for an input of approximately
// inputSize bytes. inputSize is a hint, not a hard cap; the pools grow as
// needed.
func New(inputSize int) *Arena {
	return &Arena{
		strBytes: make([]byte, 0, inputSize),
		strIndex: make(map[string]int),
	}
}

// Reset returns every pool's high-water mark to zero. If alsoClearStrings
// is false, the string pool and its interning table are kept, so strings
// interned in a previous parse with this Arena remain valid and
// deduplicate against new ones; if true, the string pool is cleared too.
// Either way, every AstNode and array/hash run produced before Reset is
// invalidated.
func (a *Arena) Reset(alsoClearStrings bool) {
	a.arrayPool = a.arrayPool[:0]
	a.hashPool = a.hashPool[:0]
	a.arrayScratch = a.arrayScratch[:0]
	a.hashScratch = a.hashScratch[:0]
	a.nodePool = a.nodePool[:0]
	if alsoClearStrings {
		a.strBytes = a.strBytes[:0]
		a.strTable = a.strTable[:0]
		for k := range a.strIndex {
			delete(a.strIndex, k)
		}
	}
}

// InternString deduplicates bytes against previously-interned strings,
// returning the same pool index for equal content. On a miss, bytes is
// copied into the string-bytes pool (the caller's slice is never retained).
func (a *Arena) InternString(bytes []byte) int {
	if ix, ok := a.strIndex[string(bytes)]; ok {
		return ix
	}
	offset := len(a.strBytes)
	a.strBytes = append(a.strBytes, bytes...)
	rec := stringRecord{offset: offset, length: len(bytes)}
	a.strTable = append(a.strTable, rec)
	ix := len(a.strTable) - 1
	a.strIndex[string(bytes)] = ix
	return ix
}

// String returns the interned string at pool index ix.
func (a *Arena) String(ix int) (string, error) {
	if ix < 0 || ix >= len(a.strTable) {
		return "", pegerr.NewInternal("string pool index %d out of range", ix)
	}
	rec := a.strTable[ix]
	return string(a.strBytes[rec.offset : rec.offset+rec.length]), nil
}

// PushArrayScratch opens a new scratch frame for accumulating array
// elements (used by Sequence/Repetition while evaluating children).
func (a *Arena) PushArrayScratch() {
	a.arrayScratch = append(a.arrayScratch, nil)
}

// PushArrayElement appends node to the innermost open array scratch frame.
func (a *Arena) PushArrayElement(node AstNode) {
	top := len(a.arrayScratch) - 1
	a.arrayScratch[top] = append(a.arrayScratch[top], node)
}

// ArrayScratchLen returns the number of elements accumulated in the
// innermost open array scratch frame.
func (a *Arena) ArrayScratchLen() int {
	return len(a.arrayScratch[len(a.arrayScratch)-1])
}

// ArrayScratchElements returns the elements accumulated so far in the
// innermost open array scratch frame, without committing or popping it.
// Callers use this to inspect a Sequence/Repetition's accumulated children
// before deciding how to merge them (see the merge conventions).
func (a *Arena) ArrayScratchElements() []AstNode {
	return a.arrayScratch[len(a.arrayScratch)-1]
}

// FinishArray commits the innermost open array scratch frame to the array
// pool as a contiguous run and returns (start, length). The scratch frame
// is popped.
func (a *Arena) FinishArray() (start, length int) {
	top := len(a.arrayScratch) - 1
	elems := a.arrayScratch[top]
	a.arrayScratch = a.arrayScratch[:top]
	start = len(a.arrayPool)
	a.arrayPool = append(a.arrayPool, elems...)
	return start, len(elems)
}

// DiscardArrayScratch pops the innermost open array scratch frame without
// committing it, for use when a Sequence/Repetition fails partway through.
func (a *Arena) DiscardArrayScratch() {
	top := len(a.arrayScratch) - 1
	a.arrayScratch = a.arrayScratch[:top]
}

// ArrayElements returns the elements of the array run at (start, length).
func (a *Arena) ArrayElements(start, length int) []AstNode {
	return a.arrayPool[start : start+length]
}

// PushHashScratch opens a new scratch frame for accumulating hash entries.
func (a *Arena) PushHashScratch() {
	a.hashScratch = append(a.hashScratch, nil)
}

// PushHashEntry appends a (key, value) pair to the innermost open hash
// scratch frame, merging key-wise per the merge convention: if key already
// appears in this frame, the later value wins.
func (a *Arena) PushHashEntry(key int, value AstNode) {
	top := len(a.hashScratch) - 1
	entries := a.hashScratch[top]
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			return
		}
	}
	a.hashScratch[top] = append(entries, HashEntry{Key: key, Value: value})
}

// HashScratchLen returns the number of entries accumulated in the innermost
// open hash scratch frame.
func (a *Arena) HashScratchLen() int {
	return len(a.hashScratch[len(a.hashScratch)-1])
}

// FinishHash commits the innermost open hash scratch frame to the hash
// pool as a contiguous run and returns (start, length). The scratch frame
// is popped.
func (a *Arena) FinishHash() (start, length int) {
	top := len(a.hashScratch) - 1
	entries := a.hashScratch[top]
	a.hashScratch = a.hashScratch[:top]
	start = len(a.hashPool)
	a.hashPool = append(a.hashPool, entries...)
	return start, len(entries)
}

// DiscardHashScratch pops the innermost open hash scratch frame without
// committing it.
func (a *Arena) DiscardHashScratch() {
	top := len(a.hashScratch) - 1
	a.hashScratch = a.hashScratch[:top]
}

// HashEntries returns the entries of the hash run at (start, length).
func (a *Arena) HashEntries(start, length int) []HashEntry {
	return a.hashPool[start : start+length]
}

// PushNode records node in the node pool (used to give the packrat cache a
// compact integer reference to a produced AstNode) and returns its index.
func (a *Arena) PushNode(node AstNode) int {
	a.nodePool = append(a.nodePool, node)
	return len(a.nodePool) - 1
}

// Node returns the node previously recorded with PushNode at index ix.
func (a *Arena) Node(ix int) (AstNode, error) {
	if ix < 0 || ix >= len(a.nodePool) {
		return AstNode{}, pegerr.NewInternal("node pool index %d out of range", ix)
	}
	return a.nodePool[ix], nil
}
