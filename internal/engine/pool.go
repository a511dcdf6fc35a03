package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/resolve"
)

// resolution is one contract's resolver outcome. err non-nil means the
// market fields in snap are unknown.
type resolution struct {
	snap domain.MarketSnapshot
	err  error
}

// resolveAll resolves each distinct contract exactly once through a bounded
// worker pool. Results land in a map keyed by contract, so completion order
// cannot influence any downstream fold. When ctx is cancelled, dispatch
// stops and the contracts never resolved come back marked unknown, so
// callers get a partial result instead of a failed query.
func (e *Engine) resolveAll(ctx context.Context, contracts []string) map[string]resolution {
	results := make(map[string]resolution, len(contracts))
	if len(contracts) == 0 {
		return results
	}

	var mu sync.Mutex
	jobs := make(chan string)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(contracts) {
		workers = len(contracts)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for contract := range jobs {
				snap, err := e.resolver.Resolve(ctx, contract)
				mu.Lock()
				results[contract] = resolution{snap: snap, err: err}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, contract := range contracts {
		select {
		case jobs <- contract:
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Int("remaining", len(contracts)-len(results)).
				Msg("Resolution cancelled, returning partial result")
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for _, contract := range contracts {
		if _, ok := results[contract]; !ok {
			results[contract] = resolution{
				snap: domain.MarketSnapshot{ObservedAt: time.Now(), Provenance: domain.ProvenanceLive},
				err:  fmt.Errorf("resolve %s: %w", contract, resolve.ErrUnresolved),
			}
		}
	}
	return results
}
