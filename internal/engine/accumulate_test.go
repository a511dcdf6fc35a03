package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/store"
)

func entityQuery(kind domain.EntityKind, sortBy string) domain.EntityQuery {
	return domain.EntityQuery{Kind: kind, SortBy: sortBy, SortDir: domain.SortDesc}
}

func callWithPrices(contract, actor, channel string, at time.Time, baselineCap, baselinePrice float64) domain.CallEvent {
	e := call(contract, actor, channel, at, domain.Float64(baselineCap))
	e.Baseline.PriceUsd = domain.Float64(baselinePrice)
	return e
}

func TestRankEntitiesScenario(t *testing.T) {
	// alice: 0xA gains 300 in cap, 0xB loses 100.
	src := store.NewMemorySource(
		callWithPrices("0xA", "alice", "alpha-calls", t0, 1000, 1.0),
		callWithPrices("0xB", "alice", "alpha-calls", t0.Add(time.Hour), 500, 2.0),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 1300, 1.5)
	res.setCurrent("0xB", 400, 1.0)

	eng := New(src, res, Options{})
	aggs, cov, err := eng.RankEntities(context.Background(), entityQuery(domain.EntityActor, domain.SortByTotalDelta))
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	alice := aggs[0]
	assert.Equal(t, "alice", alice.ID)
	assert.Equal(t, 2, alice.CallCount)
	assert.Equal(t, 1, alice.SuccessCount)
	assert.InDelta(t, 200.0, alice.TotalDelta, 1e-9)
	assert.InDelta(t, -0.5, alice.TotalPriceDelta, 1e-9)
	assert.InDelta(t, 300.0, alice.BestDelta, 1e-9)
	assert.InDelta(t, -100.0, alice.WorstDelta, 1e-9)
	assert.InDelta(t, 100.0, alice.AverageDelta, 1e-9)
	assert.InDelta(t, 50.0, alice.SuccessRate, 1e-9)
	assert.Equal(t, []string{"0xA", "0xB"}, alice.UniqueContracts)

	assert.Equal(t, Coverage{Events: 2, Folded: 2}, cov)
}

func TestRankEntitiesByChannel(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "alpha-calls", t0, domain.Float64(1000)),
		call("0xA", "bob", "alpha-calls", t0.Add(time.Minute), domain.Float64(1000)),
		call("0xB", "carol", "beta-lounge", t0, domain.Float64(1000)),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 1500, 1)
	res.setCurrent("0xB", 1100, 1)

	eng := New(src, res, Options{})
	aggs, cov, err := eng.RankEntities(context.Background(), entityQuery(domain.EntityChannel, domain.SortByTotalDelta))
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "alpha-calls", aggs[0].ID)
	assert.Equal(t, 2, aggs[0].CallCount)
	assert.InDelta(t, 1000.0, aggs[0].TotalDelta, 1e-9)
	assert.Equal(t, "beta-lounge", aggs[1].ID)
	assert.Equal(t, 3, cov.Folded)
}

func TestRankEntitiesCoverage(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "alpha-calls", t0, domain.Float64(1000)), // folds
		call("", "alice", "alpha-calls", t0, domain.Float64(1000)),    // malformed
		call("0xA", "bob", "", t0, domain.Float64(1000)),              // no channel key
		call("0xA", "carol", "beta-lounge", t0, nil),                  // no baseline
		call("0xB", "dave", "beta-lounge", t0, domain.Float64(500)),   // unresolvable
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 2000, 1)
	res.errs["0xB"] = true

	eng := New(src, res, Options{})
	aggs, cov, err := eng.RankEntities(context.Background(), entityQuery(domain.EntityChannel, domain.SortByTotalDelta))
	require.NoError(t, err)

	assert.Equal(t, Coverage{
		Events:          5,
		Folded:          1,
		Malformed:       1,
		MissingKey:      1,
		MissingBaseline: 1,
		Unresolved:      1,
	}, cov)

	// Only the resolvable alpha-calls event survives the fold.
	require.Len(t, aggs, 1)
	assert.Equal(t, "alpha-calls", aggs[0].ID)
	assert.Equal(t, 1, aggs[0].CallCount)
}

func TestRankEntitiesSuccessRateBounds(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "winner", "", t0, domain.Float64(100)),
		call("0xB", "winner", "", t0, domain.Float64(100)),
		call("0xC", "loser", "", t0, domain.Float64(100)),
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 200, 1)
	res.setCurrent("0xB", 300, 1)
	res.setCurrent("0xC", 50, 1)

	eng := New(src, res, Options{})
	aggs, _, err := eng.RankEntities(context.Background(), entityQuery(domain.EntityActor, domain.SortBySuccessRate))
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "winner", aggs[0].ID)
	assert.InDelta(t, 100.0, aggs[0].SuccessRate, 1e-9)
	assert.Equal(t, "loser", aggs[1].ID)
	assert.InDelta(t, 0.0, aggs[1].SuccessRate, 1e-9)
	for _, agg := range aggs {
		assert.GreaterOrEqual(t, agg.SuccessRate, 0.0)
		assert.LessOrEqual(t, agg.SuccessRate, 100.0)
	}
}

func TestRankEntitiesPagination(t *testing.T) {
	src := store.NewMemorySource(
		call("0xA", "alice", "", t0, domain.Float64(100)), // +400
		call("0xB", "bob", "", t0, domain.Float64(100)),   // +200
		call("0xC", "carol", "", t0, domain.Float64(100)), // +100
	)
	res := newFakeResolver()
	res.setCurrent("0xA", 500, 1)
	res.setCurrent("0xB", 300, 1)
	res.setCurrent("0xC", 200, 1)

	eng := New(src, res, Options{})
	q := entityQuery(domain.EntityActor, domain.SortByTotalDelta)
	q.Limit = 1
	q.Skip = 1
	aggs, _, err := eng.RankEntities(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, "bob", aggs[0].ID)
}

func TestRankEntitiesEmpty(t *testing.T) {
	eng := New(store.NewMemorySource(), newFakeResolver(), Options{})
	aggs, cov, err := eng.RankEntities(context.Background(), entityQuery(domain.EntityActor, domain.SortByTotalDelta))
	require.NoError(t, err)
	assert.Empty(t, aggs)
	assert.Equal(t, Coverage{}, cov)
}
