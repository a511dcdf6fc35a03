// Package engine is the correlation and ranking core. It joins call events
// against current market state and produces deterministic, ranked aggregates
// per contract, actor, or channel.
package engine

import (
	"github.com/soinglobal/callscope/internal/resolve"
	"github.com/soinglobal/callscope/internal/store"
)

const defaultWorkers = 8

// Options tunes the engine.
type Options struct {
	// Workers bounds concurrent market state resolutions. Grouping happens
	// before resolution, so concurrency is bounded by distinct contracts,
	// never by event count.
	Workers int
}

// Engine exposes the analysis query surface. All dependencies are injected;
// the engine holds no global state and every query owns its aggregates.
type Engine struct {
	source   store.CallSource
	resolver resolve.Resolver
	workers  int
}

// New creates an engine over a call source and a market state resolver.
func New(source store.CallSource, resolver resolve.Resolver, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{source: source, resolver: resolver, workers: workers}
}
