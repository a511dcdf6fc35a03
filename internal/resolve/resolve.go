// Package resolve composes the snapshot cache and the live fetcher into one
// operation: the best known current market snapshot for a contract.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/fetch"
	"github.com/soinglobal/callscope/internal/observe"
	"github.com/soinglobal/callscope/internal/snapcache"
)

// ErrUnresolved marks a snapshot whose market fields could not be
// determined. It is a non-fatal marker: the returned snapshot is valid with
// all-nil market fields, and callers must treat those fields as unknown,
// never as zero.
var ErrUnresolved = errors.New("market state unresolved")

// Resolver yields the best known current snapshot for a contract address.
// Implementations are safe under concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, contract string) (domain.MarketSnapshot, error)
}

// Options tunes resolver behavior.
type Options struct {
	// WriteBack stores successfully fetched live snapshots in the cache.
	// Writes are idempotent upserts; last write wins.
	WriteBack bool
}

type marketResolver struct {
	cache     snapcache.Cache
	fetcher   fetch.Fetcher
	metrics   *observe.Metrics
	writeBack bool
}

// New creates a Resolver over a cache and a live fetcher.
func New(cache snapcache.Cache, fetcher fetch.Fetcher, metrics *observe.Metrics, opts Options) Resolver {
	return &marketResolver{
		cache:     cache,
		fetcher:   fetcher,
		metrics:   metrics,
		writeBack: opts.WriteBack,
	}
}

// Resolve tries the cache first and falls back to a live fetch. A cache
// entry counts only when both price and market cap are known; otherwise the
// live source is consulted. On live failure the snapshot comes back with
// all-nil market fields and ErrUnresolved.
func (r *marketResolver) Resolve(ctx context.Context, contract string) (domain.MarketSnapshot, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveResolveSeconds(time.Since(start).Seconds())
	}()

	snap, found, err := r.cache.Get(ctx, contract)
	if err != nil {
		// Unreachable cache degrades to a miss.
		log.Warn().Err(err).Str("contract", contract).Msg("Snapshot cache unavailable")
	}
	if found && snap.Complete() {
		r.metrics.IncCacheHits()
		return snap, nil
	}
	r.metrics.IncCacheMisses()

	pairs, err := r.fetcher.FetchByContract(ctx, contract)
	if err != nil || len(pairs) == 0 {
		return unknownSnapshot(), fmt.Errorf("resolve %s: %w", contract, ErrUnresolved)
	}

	// The first returned pair is authoritative.
	live := snapshotFromPair(pairs[0])

	if r.writeBack && live.Complete() {
		if err := r.cache.Put(ctx, contract, live); err != nil {
			log.Warn().Err(err).Str("contract", contract).Msg("Snapshot cache write-back failed")
		}
	}
	return live, nil
}

func unknownSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ObservedAt: time.Now(),
		Provenance: domain.ProvenanceLive,
	}
}

func snapshotFromPair(p fetch.Pair) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		PriceUsd:    p.PriceUsdFloat(),
		ObservedAt:  time.Now(),
		Provenance:  domain.ProvenanceLive,
		ChainID:     p.ChainID,
		PairURL:     p.URL,
		TokenName:   p.BaseToken.Name,
		TokenSymbol: p.BaseToken.Symbol,
	}
	if p.MarketCap != nil {
		v := *p.MarketCap
		snap.MarketCap = &v
	}
	return snap
}
