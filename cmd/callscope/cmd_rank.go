package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soinglobal/callscope/internal/domain"
	"github.com/soinglobal/callscope/internal/engine"
)

var (
	rankSort     string
	rankDir      string
	rankLimit    int
	rankSkip     int
	rankChains   []string
	rankActors   []string
	rankChannels []string
	rankSince    string
	rankUntil    string
)

// rankCmd is the parent command for the ranking queries
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank contracts, actors, or channels by call outcomes",
	Long: `Rank joins recorded call events with current market state and sorts
the aggregates by a chosen key. Entries whose sort value is unknown always
sort last, regardless of direction.

Example usage:
  callscope rank contracts --sort=changePercent --limit=20
  callscope rank contracts --sort=mentionCount --chain=solana
  callscope rank actors --sort=totalDelta --since=2026-08-01
  callscope rank channels --sort=successRate --dir=asc`,
}

var rankContractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Rank contracts by market change since their first call",
	RunE:  runRankContracts,
}

var rankActorsCmd = &cobra.Command{
	Use:   "actors",
	Short: "Rank actors by aggregate call performance",
	RunE:  func(cmd *cobra.Command, args []string) error { return runRankEntities(domain.EntityActor) },
}

var rankChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Rank channels by aggregate call performance",
	RunE:  func(cmd *cobra.Command, args []string) error { return runRankEntities(domain.EntityChannel) },
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.AddCommand(rankContractsCmd)
	rankCmd.AddCommand(rankActorsCmd)
	rankCmd.AddCommand(rankChannelsCmd)

	rankCmd.PersistentFlags().StringVar(&rankSort, "sort", "", "Sort key (default changePercent for contracts, totalDelta for entities)")
	rankCmd.PersistentFlags().StringVar(&rankDir, "dir", "desc", "Sort direction: asc, desc")
	rankCmd.PersistentFlags().IntVar(&rankLimit, "limit", 25, "Maximum results, 0 for all")
	rankCmd.PersistentFlags().IntVar(&rankSkip, "skip", 0, "Results to skip before the limit")
	rankCmd.PersistentFlags().StringSliceVar(&rankChains, "chain", nil, "Restrict to chains (repeatable)")
	rankCmd.PersistentFlags().StringVar(&rankSince, "since", "", "Earliest call time (RFC3339 or YYYY-MM-DD)")
	rankCmd.PersistentFlags().StringVar(&rankUntil, "until", "", "Latest call time (RFC3339 or YYYY-MM-DD)")

	rankContractsCmd.Flags().StringSliceVar(&rankActors, "actor", nil, "Restrict to calls by these actors")
	rankContractsCmd.Flags().StringSliceVar(&rankChannels, "channel", nil, "Restrict to calls in these channels")
}

func parseFlagTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: use RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func timeWindow() (since, until time.Time, err error) {
	if since, err = parseFlagTime(rankSince); err != nil {
		return
	}
	until, err = parseFlagTime(rankUntil)
	return
}

func runRankContracts(cmd *cobra.Command, args []string) error {
	since, until, err := timeWindow()
	if err != nil {
		return err
	}
	sortBy := rankSort
	if sortBy == "" {
		sortBy = domain.SortByChangePercent
	}

	ctx := context.Background()
	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	q := domain.ContractQuery{
		Chains:   rankChains,
		Actors:   rankActors,
		Channels: rankChannels,
		Since:    since,
		Until:    until,
		SortBy:   sortBy,
		SortDir:  domain.SortDir(rankDir),
		Limit:    rankLimit,
		Skip:     rankSkip,
	}
	start := time.Now()
	aggs, err := a.engine.RankContracts(ctx, q)
	if err != nil {
		return err
	}
	log.Info().Int("results", len(aggs)).Dur("elapsed", time.Since(start)).
		Str("sort", sortBy).Msg("Contract ranking complete")

	if flagFormat == "json" {
		return printJSON(aggs)
	}
	printContractTable(aggs)
	return nil
}

func runRankEntities(kind domain.EntityKind) error {
	since, until, err := timeWindow()
	if err != nil {
		return err
	}
	sortBy := rankSort
	if sortBy == "" {
		sortBy = domain.SortByTotalDelta
	}

	ctx := context.Background()
	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	q := domain.EntityQuery{
		Kind:    kind,
		Chains:  rankChains,
		Since:   since,
		Until:   until,
		SortBy:  sortBy,
		SortDir: domain.SortDir(rankDir),
		Limit:   rankLimit,
		Skip:    rankSkip,
	}
	start := time.Now()
	aggs, cov, err := a.engine.RankEntities(ctx, q)
	if err != nil {
		return err
	}
	log.Info().Int("results", len(aggs)).Dur("elapsed", time.Since(start)).
		Int("events", cov.Events).Int("folded", cov.Folded).
		Int("unresolved", cov.Unresolved).Str("kind", string(kind)).
		Msg("Entity ranking complete")

	if flagFormat == "json" {
		return printJSON(struct {
			Results  []domain.EntityAggregate `json:"results"`
			Coverage engine.Coverage          `json:"coverage"`
		}{aggs, cov})
	}
	printEntityTable(aggs)
	fmt.Printf("\n%d events scanned, %d folded, %d skipped (%d malformed, %d missing key, %d missing baseline, %d unresolved)\n",
		cov.Events, cov.Folded,
		cov.Events-cov.Folded, cov.Malformed, cov.MissingKey, cov.MissingBaseline, cov.Unresolved)
	return nil
}
