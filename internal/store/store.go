// Package store provides read access to the call event store. The store is
// owned by the ingestion pipeline; this package only scans it.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/soinglobal/callscope/internal/domain"
)

// Filter narrows a call event scan. Zero values mean "no constraint". Chain
// filtering uses the chain recorded on the embedded baseline snapshot, so it
// applies before any network resolution.
type Filter struct {
	ContractAddress string
	Chains          []string
	Actors          []string
	Channels        []string
	Since           time.Time
	Until           time.Time
}

// CallSource streams call events matching a filter. Implementations may
// paginate internally and must never require the full result set in memory.
// fn is invoked once per event; a non-nil error from fn aborts the scan and
// is returned unchanged.
type CallSource interface {
	Scan(ctx context.Context, f Filter, fn func(domain.CallEvent) error) error
}

// Matches reports whether an event passes the filter. Chain comparison is
// case-insensitive; an event with no baseline chain fails any chain filter.
func (f Filter) Matches(e domain.CallEvent) bool {
	if f.ContractAddress != "" && e.ContractAddress != f.ContractAddress {
		return false
	}
	if !f.Since.IsZero() && e.OccurredAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.OccurredAt.After(f.Until) {
		return false
	}
	if len(f.Actors) > 0 && !containsString(f.Actors, e.Actor) {
		return false
	}
	if len(f.Channels) > 0 && !containsString(f.Channels, e.Channel) {
		return false
	}
	if len(f.Chains) > 0 {
		if e.Baseline == nil {
			return false
		}
		if !containsFold(f.Chains, e.Baseline.ChainID) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
