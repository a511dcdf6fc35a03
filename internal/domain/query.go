package domain

import "time"

// SortDir is the ranking direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// EntityKind selects the grouping key for entity statistics.
type EntityKind string

const (
	EntityActor   EntityKind = "actor"
	EntityChannel EntityKind = "channel"
)

// Sort keys for contract rankings.
const (
	SortByChangePercent     = "changePercent"
	SortByMentionCount      = "mentionCount"
	SortByLatestMentionAt   = "latestMentionAt"
	SortByCurrentMarketCap  = "currentMarketCap"
	SortByCurrentPrice      = "currentPrice"
	SortByBaselineMarketCap = "baselineMarketCap"
	SortByContractAddress   = "contractAddress"
)

// Sort keys for entity rankings.
const (
	SortByTotalDelta      = "totalDelta"
	SortByCallCount       = "callCount"
	SortBySuccessRate     = "successRate"
	SortByBestDelta       = "bestDelta"
	SortByWorstDelta      = "worstDelta"
	SortByAverageDelta    = "averageDelta"
	SortByUniqueContracts = "uniqueContracts"
	SortByEntityID        = "id"
)

// ContractQuery parameterizes a contract ranking. Zero-valued filters mean
// "no constraint". Chain filtering happens before any network resolution.
type ContractQuery struct {
	Chains   []string
	Actors   []string
	Channels []string
	Since    time.Time
	Until    time.Time

	SortBy  string
	SortDir SortDir
	Limit   int
	Skip    int
}

// EntityQuery parameterizes an actor or channel ranking.
type EntityQuery struct {
	Kind     EntityKind
	Chains   []string
	Since    time.Time
	Until    time.Time

	SortBy  string
	SortDir SortDir
	Limit   int
	Skip    int
}
