package engine

import (
	"sort"

	"github.com/soinglobal/callscope/internal/domain"
)

// rankContracts stably sorts aggregates by the given key. Entries whose sort
// field is unknown go last regardless of direction, and equal keys keep the
// caller's deterministic input order.
func rankContracts(aggs []domain.ContractAggregate, key string, dir domain.SortDir) {
	if key == domain.SortByContractAddress {
		sort.SliceStable(aggs, func(i, j int) bool {
			if dir == domain.SortDesc {
				return aggs[i].ContractAddress > aggs[j].ContractAddress
			}
			return aggs[i].ContractAddress < aggs[j].ContractAddress
		})
		return
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		vi, oki := contractSortValue(&aggs[i], key)
		vj, okj := contractSortValue(&aggs[j], key)
		return lessWithNulls(vi, oki, vj, okj, dir)
	})
}

// rankEntities is the entity counterpart of rankContracts.
func rankEntities(aggs []domain.EntityAggregate, key string, dir domain.SortDir) {
	if key == domain.SortByEntityID {
		sort.SliceStable(aggs, func(i, j int) bool {
			if dir == domain.SortDesc {
				return aggs[i].ID > aggs[j].ID
			}
			return aggs[i].ID < aggs[j].ID
		})
		return
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		vi := entitySortValue(&aggs[i], key)
		vj := entitySortValue(&aggs[j], key)
		return lessWithNulls(vi, true, vj, true, dir)
	})
}

func contractSortValue(a *domain.ContractAggregate, key string) (float64, bool) {
	switch key {
	case domain.SortByChangePercent:
		if a.ChangePercent == nil {
			return 0, false
		}
		return *a.ChangePercent, true
	case domain.SortByMentionCount:
		return float64(a.MentionCount), true
	case domain.SortByLatestMentionAt:
		if a.LatestMentionAt.IsZero() {
			return 0, false
		}
		return float64(a.LatestMentionAt.UnixNano()), true
	case domain.SortByCurrentMarketCap:
		if a.Current == nil || a.Current.MarketCap == nil {
			return 0, false
		}
		return *a.Current.MarketCap, true
	case domain.SortByCurrentPrice:
		if a.Current == nil || a.Current.PriceUsd == nil {
			return 0, false
		}
		return *a.Current.PriceUsd, true
	case domain.SortByBaselineMarketCap:
		if a.Baseline == nil || a.Baseline.MarketCap == nil {
			return 0, false
		}
		return *a.Baseline.MarketCap, true
	}
	return 0, false
}

func entitySortValue(a *domain.EntityAggregate, key string) float64 {
	switch key {
	case domain.SortByTotalDelta:
		return a.TotalDelta
	case domain.SortByCallCount:
		return float64(a.CallCount)
	case domain.SortBySuccessRate:
		return a.SuccessRate
	case domain.SortByBestDelta:
		return a.BestDelta
	case domain.SortByWorstDelta:
		return a.WorstDelta
	case domain.SortByAverageDelta:
		return a.AverageDelta
	case domain.SortByUniqueContracts:
		return float64(len(a.UniqueContracts))
	}
	return 0
}

// lessWithNulls orders known values by direction and places unknown values
// last either way. Equal values report false so the stable sort preserves
// input order.
func lessWithNulls(vi float64, oki bool, vj float64, okj bool, dir domain.SortDir) bool {
	if oki != okj {
		return oki
	}
	if !oki || vi == vj {
		return false
	}
	if dir == domain.SortDesc {
		return vi > vj
	}
	return vi < vj
}

// paginate applies skip then limit. limit <= 0 means no limit.
func paginate[T any](s []T, skip, limit int) []T {
	if skip >= len(s) {
		return []T{}
	}
	s = s[skip:]
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}
