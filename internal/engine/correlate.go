package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/store"
)

// contractGroup accumulates one contract's partition of call events.
type contractGroup struct {
	baseline   *domain.MarketSnapshot
	baselineAt time.Time
	actors     map[string]struct{}
	channels   map[string]struct{}
	count      int
	latest     time.Time
}

// RankContracts groups call events by contract, resolves current market
// state once per distinct contract, and returns the ranked aggregates.
// A contract whose resolution failed still appears, with unknown current
// fields, so mention counts stay accurate.
func (e *Engine) RankContracts(ctx context.Context, q domain.ContractQuery) ([]domain.ContractAggregate, error) {
	if err := validateContractQuery(q); err != nil {
		return nil, err
	}

	groups := make(map[string]*contractGroup)
	var malformed int

	filter := store.Filter{
		Chains:   q.Chains,
		Actors:   q.Actors,
		Channels: q.Channels,
		Since:    q.Since,
		Until:    q.Until,
	}
	err := e.source.Scan(ctx, filter, func(ev domain.CallEvent) error {
		if ev.Validate() != nil {
			malformed++
			return nil
		}
		g := groups[ev.ContractAddress]
		if g == nil {
			g = &contractGroup{
				actors:   make(map[string]struct{}),
				channels: make(map[string]struct{}),
			}
			groups[ev.ContractAddress] = g
		}
		// The earliest call wins as baseline; on equal timestamps the
		// first-seen event keeps it.
		if g.count == 0 || ev.OccurredAt.Before(g.baselineAt) {
			g.baseline = ev.Baseline
			g.baselineAt = ev.OccurredAt
		}
		g.count++
		g.actors[ev.Actor] = struct{}{}
		if ev.Channel != "" {
			g.channels[ev.Channel] = struct{}{}
		}
		if ev.OccurredAt.After(g.latest) {
			g.latest = ev.OccurredAt
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan call events: %w", err)
	}
	if malformed > 0 {
		log.Debug().Int("count", malformed).Msg("Skipped malformed call events")
	}
	if len(groups) == 0 {
		return []domain.ContractAggregate{}, nil
	}

	contracts := make([]string, 0, len(groups))
	for addr := range groups {
		contracts = append(contracts, addr)
	}
	// Deterministic base order; the ranker is stable on top of it.
	sort.Strings(contracts)

	resolved := e.resolveAll(ctx, contracts)

	aggs := make([]domain.ContractAggregate, 0, len(contracts))
	for _, addr := range contracts {
		g := groups[addr]
		current := resolved[addr].snap
		agg := domain.ContractAggregate{
			ContractAddress:    addr,
			Baseline:           g.baseline,
			Current:            &current,
			MentioningActors:   sortedSet(g.actors),
			MentioningChannels: sortedSet(g.channels),
			MentionCount:       g.count,
			LatestMentionAt:    g.latest,
		}
		agg.ChangePercent = domain.ChangePercent(g.baseline, agg.Current)
		aggs = append(aggs, agg)
	}

	rankContracts(aggs, q.SortBy, q.SortDir)
	return paginate(aggs, q.Skip, q.Limit), nil
}

// ContractCalls is the drill-down for one contract: every call event plus
// the distinct set of actors who mentioned it. An unknown contract yields
// empty results, not an error.
func (e *Engine) ContractCalls(ctx context.Context, contract string) ([]domain.CallEvent, []string, error) {
	if contract == "" {
		return nil, nil, &InvalidQueryError{Field: "contract", Reason: "must not be empty"}
	}

	var events []domain.CallEvent
	actors := make(map[string]struct{})
	err := e.source.Scan(ctx, store.Filter{ContractAddress: contract}, func(ev domain.CallEvent) error {
		events = append(events, ev)
		if ev.Actor != "" {
			actors[ev.Actor] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan call events: %w", err)
	}
	return events, sortedSet(actors), nil
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
