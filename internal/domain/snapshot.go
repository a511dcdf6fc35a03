// Package domain holds the core data model: call events, market snapshots,
// and the derived aggregates produced by the correlation engine.
package domain

import "time"

// Provenance records where a market snapshot came from.
type Provenance string

const (
	// ProvenanceCached marks a snapshot served from the snapshot cache.
	ProvenanceCached Provenance = "cached"
	// ProvenanceLive marks a snapshot fetched from the live market API,
	// including the all-unknown snapshot returned when the fetch failed.
	ProvenanceLive Provenance = "live"
	// ProvenanceEmbedded marks the snapshot recorded inside a call event
	// at mention time.
	ProvenanceEmbedded Provenance = "embedded"
)

// MarketSnapshot is an immutable observation of a contract's market state.
// A nil price or market cap means the value is unknown; unknown is never
// interchangeable with zero in delta math.
type MarketSnapshot struct {
	PriceUsd   *float64   `json:"priceUsd"`
	MarketCap  *float64   `json:"marketCap"`
	ObservedAt time.Time  `json:"observedAt"`
	Provenance Provenance `json:"provenance"`

	// Descriptive fields carried from the first pair of the source
	// response; informational only, never part of delta math.
	ChainID     string `json:"chainId,omitempty"`
	PairURL     string `json:"pairUrl,omitempty"`
	TokenName   string `json:"tokenName,omitempty"`
	TokenSymbol string `json:"tokenSymbol,omitempty"`
}

// Complete reports whether both price and market cap are known.
func (s MarketSnapshot) Complete() bool {
	return s.PriceUsd != nil && s.MarketCap != nil
}

// ChangePercent computes the market cap change from baseline to current as a
// percentage. It returns nil when either side is unknown or the baseline
// market cap is not positive, since dividing by a non-positive baseline is
// undefined.
func ChangePercent(baseline, current *MarketSnapshot) *float64 {
	if baseline == nil || current == nil {
		return nil
	}
	if baseline.MarketCap == nil || current.MarketCap == nil {
		return nil
	}
	if *baseline.MarketCap <= 0 {
		return nil
	}
	pct := (*current.MarketCap - *baseline.MarketCap) / *baseline.MarketCap * 100
	return &pct
}

// Float64 returns a pointer to v, for building snapshot literals.
func Float64(v float64) *float64 { return &v }
