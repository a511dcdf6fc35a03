package domain

import (
	"sort"
	"time"
)

// ContractAggregate is the per-contract join of all call events with the
// current market state. Rebuilt per query, owned by the query that built it.
type ContractAggregate struct {
	ContractAddress    string          `json:"contractAddress"`
	Baseline           *MarketSnapshot `json:"baseline,omitempty"`
	Current            *MarketSnapshot `json:"current,omitempty"`
	ChangePercent      *float64        `json:"changePercent"`
	MentioningActors   []string        `json:"mentioningActors"`
	MentioningChannels []string        `json:"mentioningChannels"`
	MentionCount       int             `json:"mentionCount"`
	LatestMentionAt    time.Time       `json:"latestMentionAt"`
}

// EntityAggregate is the per-actor or per-channel running statistic over all
// calls attributed to that entity. Mutated only by Fold during a single
// aggregation pass, then sealed by Finalize.
type EntityAggregate struct {
	ID              string   `json:"id"`
	CallCount       int      `json:"callCount"`
	SuccessCount    int      `json:"successCount"`
	TotalDelta      float64  `json:"totalDelta"`
	TotalPriceDelta float64  `json:"totalPriceDelta"`
	BestDelta       float64  `json:"bestDelta"`
	WorstDelta      float64  `json:"worstDelta"`
	UniqueContracts []string `json:"uniqueContracts"`

	// Derived by Finalize.
	SuccessRate  float64 `json:"successRate"`
	AverageDelta float64 `json:"averageDelta"`

	contracts map[string]struct{}
}

// Fold adds one call's market cap delta (and, when known, price delta) to
// the aggregate. Best and worst initialize from the first observed delta so
// an entity with only losing calls shows a negative best rather than zero.
func (a *EntityAggregate) Fold(contract string, delta float64, priceDelta *float64) {
	if a.contracts == nil {
		a.contracts = make(map[string]struct{})
	}
	if a.CallCount == 0 {
		a.BestDelta = delta
		a.WorstDelta = delta
	} else {
		if delta > a.BestDelta {
			a.BestDelta = delta
		}
		if delta < a.WorstDelta {
			a.WorstDelta = delta
		}
	}
	a.CallCount++
	a.TotalDelta += delta
	if priceDelta != nil {
		a.TotalPriceDelta += *priceDelta
	}
	if delta > 0 {
		a.SuccessCount++
	}
	a.contracts[contract] = struct{}{}
}

// Finalize computes the derived rates and materializes the unique contract
// set in sorted order. Rates are zero when no calls were folded.
func (a *EntityAggregate) Finalize() {
	if a.CallCount > 0 {
		a.SuccessRate = float64(a.SuccessCount) / float64(a.CallCount) * 100
		a.AverageDelta = a.TotalDelta / float64(a.CallCount)
	}
	a.UniqueContracts = sortedKeys(a.contracts)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
