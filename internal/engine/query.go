package engine

import (
	"fmt"

	"github.com/soinglobal/callscope/internal/domain"
)

// InvalidQueryError rejects a query before any work begins. It is the only
// hard failure the engine surfaces; everything else degrades to unknown
// fields in the result.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

var contractSortKeys = map[string]bool{
	domain.SortByChangePercent:     true,
	domain.SortByMentionCount:      true,
	domain.SortByLatestMentionAt:   true,
	domain.SortByCurrentMarketCap:  true,
	domain.SortByCurrentPrice:      true,
	domain.SortByBaselineMarketCap: true,
	domain.SortByContractAddress:   true,
}

var entitySortKeys = map[string]bool{
	domain.SortByTotalDelta:      true,
	domain.SortByCallCount:       true,
	domain.SortBySuccessRate:     true,
	domain.SortByBestDelta:       true,
	domain.SortByWorstDelta:      true,
	domain.SortByAverageDelta:    true,
	domain.SortByUniqueContracts: true,
	domain.SortByEntityID:        true,
}

func validateCommon(sortDir domain.SortDir, limit, skip int) *InvalidQueryError {
	switch sortDir {
	case domain.SortAsc, domain.SortDesc:
	default:
		return &InvalidQueryError{Field: "sortDir", Reason: fmt.Sprintf("must be asc or desc, got %q", sortDir)}
	}
	if limit < 0 {
		return &InvalidQueryError{Field: "limit", Reason: "must not be negative"}
	}
	if skip < 0 {
		return &InvalidQueryError{Field: "skip", Reason: "must not be negative"}
	}
	return nil
}

func validateContractQuery(q domain.ContractQuery) error {
	if !contractSortKeys[q.SortBy] {
		return &InvalidQueryError{Field: "sortBy", Reason: fmt.Sprintf("unsupported contract sort key %q", q.SortBy)}
	}
	if err := validateCommon(q.SortDir, q.Limit, q.Skip); err != nil {
		return err
	}
	return nil
}

func validateEntityQuery(q domain.EntityQuery) error {
	switch q.Kind {
	case domain.EntityActor, domain.EntityChannel:
	default:
		return &InvalidQueryError{Field: "entityKind", Reason: fmt.Sprintf("must be actor or channel, got %q", q.Kind)}
	}
	if !entitySortKeys[q.SortBy] {
		return &InvalidQueryError{Field: "sortBy", Reason: fmt.Sprintf("unsupported entity sort key %q", q.SortBy)}
	}
	if err := validateCommon(q.SortDir, q.Limit, q.Skip); err != nil {
		return err
	}
	return nil
}
