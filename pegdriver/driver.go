// Package pegdriver is the top-level convenience entry point gluing
// Grammar, Arena, Cache and Interpreter into a single call, in the style of
// this lineage's top-level parser driver: a Parse function driven by
// functional options, plus an AST pretty-printer.
package pegdriver

import (
	"github.com/nihei9/pegrat/arena"
	"github.com/nihei9/pegrat/atom"
	"github.com/nihei9/pegrat/cache"
	"github.com/nihei9/pegrat/interp"
	"github.com/nihei9/pegrat/pegerr"
)

// DefaultMaxInputSize bounds the input accepted by Parse; zero means
// unlimited. 100 MiB matches the resource-guard default.
const DefaultMaxInputSize = 100 * 1024 * 1024

type config struct {
	maxInputSize int
	maxDepth     int
	useCache     bool
}

// Option configures a Parse call, mirroring this lineage's ParserOption
// pattern.
type Option func(*config)

// WithMaxInputSize overrides the input-size guard. Zero means unlimited.
func WithMaxInputSize(n int) Option {
	return func(c *config) { c.maxInputSize = n }
}

// WithMaxRecursionDepth overrides the recursion-depth guard. Zero means
// unlimited.
func WithMaxRecursionDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithoutCache disables the packrat cache. Intended for testing the
// memoization-equivalence property and for diagnosing cache-related bugs;
// production callers should leave the cache enabled.
func WithoutCache() Option {
	return func(c *config) { c.useCache = false }
}

// Parse runs g against input, applying the resource guards and building a
// fresh Arena and packrat Cache sized to the input. On success it returns
// the Arena (which the AstNode remains valid against until the Arena is
// reused or discarded) and the result node. On failure it returns a
// *pegerr.ParseError.
func Parse(g *atom.Grammar, input []byte, opts ...Option) (*arena.Arena, arena.AstNode, error) {
	c := config{
		maxInputSize: DefaultMaxInputSize,
		maxDepth:     interp.DefaultMaxRecursionDepth,
		useCache:     true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.maxInputSize > 0 && len(input) > c.maxInputSize {
		return nil, arena.Nil, pegerr.NewInputTooLarge(len(input), c.maxInputSize)
	}

	ar := arena.New(len(input))
	ch := cache.New(len(input))
	it := interp.New(g, input, ar, ch, c.maxDepth, c.useCache)
	node, err := it.Run()
	if err != nil {
		return nil, arena.Nil, err
	}
	return ar, node, nil
}
