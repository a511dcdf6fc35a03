package store

import (
	"context"
	"sync"

	"github.com/soinglobal/callscope/internal/domain"
)

// MemorySource is an in-memory CallSource for tests and fixtures. Events are
// scanned in insertion order, which doubles as the first-seen order used for
// baseline tie-breaking.
type MemorySource struct {
	mu     sync.RWMutex
	events []domain.CallEvent
}

// NewMemorySource creates a source pre-loaded with events.
func NewMemorySource(events ...domain.CallEvent) *MemorySource {
	return &MemorySource{events: append([]domain.CallEvent(nil), events...)}
}

// Add appends events to the source.
func (m *MemorySource) Add(events ...domain.CallEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// Scan implements CallSource.
func (m *MemorySource) Scan(ctx context.Context, f Filter, fn func(domain.CallEvent) error) error {
	m.mu.RLock()
	snapshot := append([]domain.CallEvent(nil), m.events...)
	m.mu.RUnlock()

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.Matches(e) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}
