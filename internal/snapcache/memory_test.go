package snapcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soinglobal/callscope/internal/domain"
)

func TestMemoryCachePutGet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	_, found, err := cache.Get(ctx, "0xA")
	require.NoError(t, err)
	assert.False(t, found)

	snap := domain.MarketSnapshot{
		PriceUsd:   domain.Float64(0.5),
		MarketCap:  domain.Float64(1000),
		ObservedAt: time.Now(),
		Provenance: domain.ProvenanceLive,
		ChainID:    "ethereum",
	}
	require.NoError(t, cache.Put(ctx, "0xA", snap))

	got, found, err := cache.Get(ctx, "0xA")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.ProvenanceCached, got.Provenance)
	assert.Equal(t, *snap.MarketCap, *got.MarketCap)
	assert.Equal(t, "ethereum", got.ChainID)
}

func TestMemoryCacheLastWriteWins(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	require.NoError(t, cache.Put(ctx, "0xA", domain.MarketSnapshot{MarketCap: domain.Float64(1)}))
	require.NoError(t, cache.Put(ctx, "0xA", domain.MarketSnapshot{MarketCap: domain.Float64(2)}))

	got, found, err := cache.Get(ctx, "0xA")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2.0, *got.MarketCap)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Nanosecond)

	require.NoError(t, cache.Put(ctx, "0xA", domain.MarketSnapshot{MarketCap: domain.Float64(1)}))
	time.Sleep(time.Millisecond)

	_, found, err := cache.Get(ctx, "0xA")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}
