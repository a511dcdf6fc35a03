package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/resolve"
	"github.com/soinglobal/callscope/internal/store"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fakeResolver serves canned snapshots with optional per-contract delays and
// failures, and counts how often each contract is resolved.
type fakeResolver struct {
	mu        sync.Mutex
	snaps     map[string]domain.MarketSnapshot
	errs      map[string]bool
	delays    map[string]time.Duration
	calls     map[string]int
	onResolve func(contract string)
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		snaps:  make(map[string]domain.MarketSnapshot),
		errs:   make(map[string]bool),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

func (f *fakeResolver) setCurrent(contract string, marketCap, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[contract] = domain.MarketSnapshot{
		PriceUsd:   domain.Float64(price),
		MarketCap:  domain.Float64(marketCap),
		ObservedAt: t0.Add(48 * time.Hour),
		Provenance: domain.ProvenanceLive,
	}
}

func (f *fakeResolver) Resolve(ctx context.Context, contract string) (domain.MarketSnapshot, error) {
	f.mu.Lock()
	f.calls[contract]++
	delay := f.delays[contract]
	fail := f.errs[contract]
	snap, ok := f.snaps[contract]
	hook := f.onResolve
	f.mu.Unlock()

	if ctx.Err() != nil {
		unknown := domain.MarketSnapshot{ObservedAt: time.Now(), Provenance: domain.ProvenanceLive}
		return unknown, fmt.Errorf("resolve %s: %w", contract, resolve.ErrUnresolved)
	}
	if hook != nil {
		hook(contract)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			ok = false
		}
	}
	if fail || !ok {
		unknown := domain.MarketSnapshot{ObservedAt: time.Now(), Provenance: domain.ProvenanceLive}
		return unknown, fmt.Errorf("resolve %s: %w", contract, resolve.ErrUnresolved)
	}
	return snap, nil
}

func (f *fakeResolver) callCount(contract string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[contract]
}

func call(contract, actor, channel string, at time.Time, baselineCap *float64) domain.CallEvent {
	e := domain.CallEvent{
		ContractAddress: contract,
		Actor:           actor,
		Channel:         channel,
		OccurredAt:      at,
	}
	if baselineCap != nil {
		e.Baseline = &domain.MarketSnapshot{
			MarketCap:  baselineCap,
			ObservedAt: at,
			Provenance: domain.ProvenanceEmbedded,
		}
	}
	return e
}

func contractQuery(sortBy string, dir domain.SortDir) domain.ContractQuery {
	return domain.ContractQuery{SortBy: sortBy, SortDir: dir}
}

func TestRankContractsScenario(t *testing.T) {
	// Two calls on 0xA: alice first with cap 1000, bob later with cap 500.
	// Earliest call wins as baseline; current cap 2000 doubles it.
	src := store.NewMemorySource(
		call("0xA", "alice", "alpha-calls", t0, domain.Float64(1000)),
		call("0xA", "bob", "beta-lounge", t0.Add(time.Hour), domain.Float64(500)),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 2000, 1)

	eng := New(src, res, Options{})
	aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, domain.SortDesc))
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.Equal(t, "0xA", agg.ContractAddress)
	require.NotNil(t, agg.Baseline)
	assert.Equal(t, 1000.0, *agg.Baseline.MarketCap)
	require.NotNil(t, agg.ChangePercent)
	assert.InDelta(t, 100.0, *agg.ChangePercent, 1e-9)
	assert.Equal(t, []string{"alice", "bob"}, agg.MentioningActors)
	assert.Equal(t, []string{"alpha-calls", "beta-lounge"}, agg.MentioningChannels)
	assert.Equal(t, 2, agg.MentionCount)
	assert.Equal(t, t0.Add(time.Hour), agg.LatestMentionAt)
}

func TestRankContractsBaselineTieFirstSeen(t *testing.T) {
	// Equal timestamps: the first-seen event keeps the baseline.
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)),
		call("0xA", "bob", "", t0, domain.Float64(500)),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 2000, 1)

	eng := New(src, res, Options{})
	aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, domain.SortDesc))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 1000.0, *aggs[0].Baseline.MarketCap)
}

func TestRankContractsPagination(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)), // +50%
		call("0xB", "bob", "", t0, domain.Float64(1000)),   // +30%
		call("0xC", "carol", "", t0, domain.Float64(1000)), // +10%
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 1500, 1)
	res.setCurrent("0xB", 1300, 1)
	res.setCurrent("0xC", 1100, 1)

	eng := New(src, res, Options{})
	q := contractQuery(domain.SortByChangePercent, domain.SortDesc)
	q.Limit = 1
	q.Skip = 1
	aggs, err := eng.RankContracts(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, "0xB", aggs[0].ContractAddress)
	assert.InDelta(t, 30.0, *aggs[0].ChangePercent, 1e-9)
}

func TestRankContractsNullChangeSortsLast(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(0)),    // non-positive baseline
		call("0xB", "bob", "", t0, nil),                    // no baseline at all
		call("0xC", "carol", "", t0, domain.Float64(1000)), // resolvable
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 500, 1)
	res.setCurrent("0xB", 500, 1)
	res.setCurrent("0xC", 1500, 1)

	eng := New(src, res, Options{})
	for _, dir := range []domain.SortDir{domain.SortAsc, domain.SortDesc} {
		aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, dir))
		require.NoError(t, err)
		require.Len(t, aggs, 3)
		assert.Equal(t, "0xC", aggs[0].ContractAddress, "dir=%s", dir)
		assert.Nil(t, aggs[1].ChangePercent)
		assert.Nil(t, aggs[2].ChangePercent)
	}
}

func TestRankContractsPartialFailureKeepsEntry(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)),
		call("0xB", "bob", "", t0, domain.Float64(1000)),
		call("0xC", "carol", "", t0, domain.Float64(1000)),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 1500, 1)
	res.errs["0xB"] = true
	res.setCurrent("0xC", 1100, 1)

	eng := New(src, res, Options{})
	aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, domain.SortDesc))
	require.NoError(t, err)
	require.Len(t, aggs, 3, "a failing resolution must not drop the contract")

	var failing *domain.ContractAggregate
	for i := range aggs {
		if aggs[i].ContractAddress == "0xB" {
			failing = &aggs[i]
		}
	}
	require.NotNil(t, failing)
	assert.Nil(t, failing.ChangePercent)
	require.NotNil(t, failing.Current)
	assert.Nil(t, failing.Current.MarketCap)
	assert.Nil(t, failing.Current.PriceUsd)
	assert.Equal(t, 1, failing.MentionCount)
}

func TestResolutionDedupPerPass(t *testing.T) {
	events := make([]domain.CallEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, call("0xA", fmt.Sprintf("actor%d", i), "", t0.Add(time.Duration(i)*time.Minute), domain.Float64(1000)))
	}
	src := store.NewMemorySource(events...)

	t.Run("contracts", func(t *testing.T) {
		res := newFakeResolver()
		res.setCurrent("0xA", 2000, 1)
		eng := New(src, res, Options{})
		_, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByMentionCount, domain.SortDesc))
		require.NoError(t, err)
		assert.Equal(t, 1, res.callCount("0xA"), "one pass resolves each contract at most once")
	})

	t.Run("entities", func(t *testing.T) {
		res := newFakeResolver()
		res.setCurrent("0xA", 2000, 1)
		eng := New(src, res, Options{})
		_, _, err := eng.RankEntities(context.Background(), domain.EntityQuery{
			Kind: domain.EntityActor, SortBy: domain.SortByTotalDelta, SortDir: domain.SortDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.callCount("0xA"))
	})
}

func TestCompletionOrderIndependence(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)),
		call("0xB", "alice", "", t0.Add(time.Minute), domain.Float64(2000)),
		call("0xC", "bob", "", t0.Add(2*time.Minute), domain.Float64(3000)),
	)

	run := func(workers int, delays map[string]time.Duration) []domain.ContractAggregate {
		res := newFakeResolver()
		res.setCurrent("0xA", 1500, 1)
		res.setCurrent("0xB", 1000, 2)
		res.setCurrent("0xC", 6000, 3)
		for c, d := range delays {
			res.delays[c] = d
		}
		eng := New(src, res, Options{Workers: workers})
		aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, domain.SortDesc))
		require.NoError(t, err)
		return aggs
	}

	sequential := run(1, nil)
	// Reverse the completion order: the first-dispatched contract finishes last.
	reordered := run(3, map[string]time.Duration{
		"0xA": 30 * time.Millisecond,
		"0xB": 15 * time.Millisecond,
		"0xC": 1 * time.Millisecond,
	})
	assert.Equal(t, sequential, reordered, "completion order must never affect the aggregate")
}

func TestRankContractsCancelledContextReturnsPartial(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)),
		call("0xB", "bob", "", t0, domain.Float64(1000)),
		call("0xC", "carol", "", t0, domain.Float64(1000)),
	)
	ctx, cancel := context.WithCancel(context.Background())

	res := newFakeResolver()
	res.setCurrent("0xA", 2000, 1)
	res.setCurrent("0xB", 2000, 1)
	res.setCurrent("0xC", 2000, 1)
	// Cancel as soon as the first resolution starts; with one worker the
	// remaining contracts are never dispatched.
	res.onResolve = func(string) { cancel() }

	eng := New(src, res, Options{Workers: 1})
	aggs, err := eng.RankContracts(ctx, contractQuery(domain.SortByMentionCount, domain.SortDesc))
	require.NoError(t, err, "cancellation yields a partial result, not a failure")
	require.Len(t, aggs, 3)

	resolved := 0
	for _, agg := range aggs {
		require.NotNil(t, agg.Current)
		if agg.Current.MarketCap != nil {
			resolved++
		}
	}
	assert.Equal(t, 1, resolved, "already-resolved contracts keep their values")
}

func TestRankContractsEmptyScan(t *testing.T) {
	eng := New(store.NewMemorySource(), newFakeResolver(), Options{})
	aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, domain.SortDesc))
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestRankContractsSkipsMalformedEvents(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(1000)),
		call("", "ghost", "", t0, domain.Float64(1000)),   // no contract
		call("0xA", "", "", t0, domain.Float64(1000)),     // no actor
		call("0xA", "bob", "", time.Time{}, domain.Float64(1000)), // no timestamp
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 2000, 1)

	eng := New(src, res, Options{})
	aggs, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByMentionCount, domain.SortDesc))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 1, aggs[0].MentionCount)
	assert.Equal(t, []string{"alice"}, aggs[0].MentioningActors)
}

func TestContractCalls(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "alpha-calls", t0, domain.Float64(1000)),
		call("0xB", "bob", "", t0, nil),
		call("0xA", "bob", "beta-lounge", t0.Add(time.Hour), nil),
	)
	eng := New(src, newFakeResolver(), Options{})

	events, actors, err := eng.ContractCalls(context.Background(), "0xA")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, []string{"alice", "bob"}, actors)

	events, actors, err = eng.ContractCalls(context.Background(), "0xZ")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, actors)

	_, _, err = eng.ContractCalls(context.Background(), "")
	var iq *InvalidQueryError
	assert.ErrorAs(t, err, &iq)
}

func TestInvalidQueriesRejectedBeforeWork(t *testing.T) {
	src := store.NewMemorySource(call("0xA", "alice", "", t0, domain.Float64(1000)))
	res := newFakeResolver()
	eng := New(src, res, Options{})

	tests := []struct {
		name string
		run  func() error
	}{
		{"bad contract sort key", func() error {
			_, err := eng.RankContracts(context.Background(), contractQuery("volume", domain.SortDesc))
			return err
		}},
		{"bad direction", func() error {
			_, err := eng.RankContracts(context.Background(), contractQuery(domain.SortByChangePercent, "sideways"))
			return err
		}},
		{"negative limit", func() error {
			q := contractQuery(domain.SortByChangePercent, domain.SortDesc)
			q.Limit = -1
			_, err := eng.RankContracts(context.Background(), q)
			return err
		}},
		{"negative skip", func() error {
			q := contractQuery(domain.SortByChangePercent, domain.SortDesc)
			q.Skip = -1
			_, err := eng.RankContracts(context.Background(), q)
			return err
		}},
		{"bad entity kind", func() error {
			_, _, err := eng.RankEntities(context.Background(), domain.EntityQuery{
				Kind: "group", SortBy: domain.SortByTotalDelta, SortDir: domain.SortDesc,
			})
			return err
		}},
		{"bad entity sort key", func() error {
			_, _, err := eng.RankEntities(context.Background(), domain.EntityQuery{
				Kind: domain.EntityActor, SortBy: "charisma", SortDir: domain.SortDesc,
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var iq *InvalidQueryError
			require.ErrorAs(t, err, &iq)
		})
	}
	for contract, n := range res.calls {
		assert.Zero(t, n, "invalid query must not resolve %s", contract)
	}
}
