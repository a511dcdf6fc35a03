package snapcache

import (
	"context"
	"sync"
	"time"

	"github.com/soinglobal/callscope/internal/domain"
)

// MemoryCache is an in-process Cache for tests and cache-less deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	snap     domain.MarketSnapshot
	cachedAt time.Time
}

// NewMemoryCache creates an in-memory cache. ttl <= 0 means entries never
// expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, contract string) (domain.MarketSnapshot, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[contract]
	m.mu.RUnlock()
	if !ok {
		return domain.MarketSnapshot{}, false, nil
	}
	if m.ttl > 0 && time.Since(entry.cachedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, contract)
		m.mu.Unlock()
		return domain.MarketSnapshot{}, false, nil
	}
	snap := entry.snap
	snap.Provenance = domain.ProvenanceCached
	return snap, true, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(_ context.Context, contract string, snap domain.MarketSnapshot) error {
	m.mu.Lock()
	m.entries[contract] = memoryEntry{snap: snap, cachedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// Len reports the number of live entries, for tests.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
