package atom

import (
	"sync"

	"github.com/coregx/coregex"
)

// regexCache lazily compiles and memoizes the coregex.Regex for each Re
// atom in a Grammar. It is populated on first use and is safe for
// concurrent readers, because a validated Grammar is immutable and may be
// shared across concurrent parses (see the concurrency model): two parses
// racing to compile the same pattern for the first time must not corrupt
// each other, so population is guarded by a mutex rather than left
// unsynchronized.
type regexCache struct {
	mu       sync.RWMutex
	compiled map[int]*coregex.Regex
}

// CompiledRegex returns the compiled, anchored matcher for the Re atom at
// index ix, compiling it on first use. The pattern is wrapped so that it
// only matches starting at the beginning of the slice it is given; callers
// must pass input[pos:] and treat a non-nil, zero-start match as success.
func (g *Grammar) CompiledRegex(ix int) (*coregex.Regex, error) {
	g.regexes.mu.RLock()
	re, ok := g.regexes.compiled[ix]
	g.regexes.mu.RUnlock()
	if ok {
		return re, nil
	}

	g.regexes.mu.Lock()
	defer g.regexes.mu.Unlock()
	if re, ok := g.regexes.compiled[ix]; ok {
		return re, nil
	}

	re, err := coregex.Compile(`\A(?:` + g.Atoms[ix].Pattern + `)`)
	if err != nil {
		return nil, err
	}
	if g.regexes.compiled == nil {
		g.regexes.compiled = make(map[int]*coregex.Regex)
	}
	g.regexes.compiled[ix] = re
	return re, nil
}
