package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/store"
)

// Coverage is the data quality diagnostic for an entity ranking: how many
// events were scanned, how many deltas were folded, and why the rest were
// skipped. Skipped events never abort the query.
type Coverage struct {
	Events          int `json:"events"`
	Folded          int `json:"folded"`
	Malformed       int `json:"malformed"`
	MissingKey      int `json:"missingKey"`
	MissingBaseline int `json:"missingBaseline"`
	Unresolved      int `json:"unresolved"`
}

// pendingCall is the compact per-event record buffered between the scan and
// the fold, so the raw events (with message text) never accumulate.
type pendingCall struct {
	key           string
	contract      string
	baselineCap   float64
	baselinePrice *float64
}

// RankEntities folds call events into per-actor or per-channel running
// aggregates and returns them ranked. Current market state is resolved once
// per distinct contract across the whole pass, and a resolver result is
// reused for every event referencing that contract.
func (e *Engine) RankEntities(ctx context.Context, q domain.EntityQuery) ([]domain.EntityAggregate, Coverage, error) {
	var cov Coverage
	if err := validateEntityQuery(q); err != nil {
		return nil, cov, err
	}

	keyFn := func(ev domain.CallEvent) string { return ev.Actor }
	if q.Kind == domain.EntityChannel {
		keyFn = func(ev domain.CallEvent) string { return ev.Channel }
	}

	var pending []pendingCall
	filter := store.Filter{Chains: q.Chains, Since: q.Since, Until: q.Until}
	err := e.source.Scan(ctx, filter, func(ev domain.CallEvent) error {
		cov.Events++
		if ev.Validate() != nil {
			cov.Malformed++
			return nil
		}
		key := keyFn(ev)
		if key == "" {
			cov.MissingKey++
			return nil
		}
		if ev.Baseline == nil || ev.Baseline.MarketCap == nil {
			cov.MissingBaseline++
			return nil
		}
		p := pendingCall{
			key:         key,
			contract:    ev.ContractAddress,
			baselineCap: *ev.Baseline.MarketCap,
		}
		if ev.Baseline.PriceUsd != nil {
			v := *ev.Baseline.PriceUsd
			p.baselinePrice = &v
		}
		pending = append(pending, p)
		return nil
	})
	if err != nil {
		return nil, cov, fmt.Errorf("scan call events: %w", err)
	}

	distinct := make(map[string]struct{})
	for _, p := range pending {
		distinct[p.contract] = struct{}{}
	}
	contracts := sortedSet(distinct)

	resolved := e.resolveAll(ctx, contracts)

	aggs := make(map[string]*domain.EntityAggregate)
	for _, p := range pending {
		res := resolved[p.contract]
		if res.err != nil || res.snap.MarketCap == nil {
			cov.Unresolved++
			continue
		}
		agg := aggs[p.key]
		if agg == nil {
			agg = &domain.EntityAggregate{ID: p.key}
			aggs[p.key] = agg
		}
		delta := *res.snap.MarketCap - p.baselineCap
		var priceDelta *float64
		if p.baselinePrice != nil && res.snap.PriceUsd != nil {
			d := *res.snap.PriceUsd - *p.baselinePrice
			priceDelta = &d
		}
		agg.Fold(p.contract, delta, priceDelta)
		cov.Folded++
	}

	out := make([]domain.EntityAggregate, 0, len(aggs))
	ids := make([]string, 0, len(aggs))
	for id := range aggs {
		ids = append(ids, id)
	}
	// Deterministic base order by entity id; the ranker is stable on top.
	sort.Strings(ids)
	for _, id := range ids {
		agg := aggs[id]
		agg.Finalize()
		out = append(out, *agg)
	}

	rankEntities(out, q.SortBy, q.SortDir)
	return paginate(out, q.Skip, q.Limit), cov, nil
}
