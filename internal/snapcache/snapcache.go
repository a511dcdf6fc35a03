// Package snapcache provides the market snapshot cache keyed by contract
// address. The cache is advisory: values are the most recently observed
// snapshot, and concurrent writers for a contract are last-write-wins.
package snapcache

import (
	"context"

	"github.com/soinglobal/callscope/internal/domain"
)

// Cache is the snapshot cache contract. Get returns (snapshot, found, error);
// an unreachable backend surfaces as an error, which callers treat as a miss.
type Cache interface {
	Get(ctx context.Context, contract string) (domain.MarketSnapshot, bool, error)
	Put(ctx context.Context, contract string, snap domain.MarketSnapshot) error
}
