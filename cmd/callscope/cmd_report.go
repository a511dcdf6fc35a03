package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soinglobal/callscope/internal/domain"
)

var reportTop int

// reportCmd implements the 'callscope report' command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Combined top contracts, actors, and channels report",
	Long: `Report runs the three rankings in one process so the resolver cache
is shared across them: a contract resolved for the contract ranking is not
fetched again for the actor or channel rankings.

Example usage:
  callscope report
  callscope report --top=10 --format=json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Entries per section")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	contracts, err := a.engine.RankContracts(ctx, domain.ContractQuery{
		SortBy: domain.SortByChangePercent, SortDir: domain.SortDesc, Limit: reportTop,
	})
	if err != nil {
		return err
	}
	actors, _, err := a.engine.RankEntities(ctx, domain.EntityQuery{
		Kind: domain.EntityActor, SortBy: domain.SortByTotalDelta,
		SortDir: domain.SortDesc, Limit: reportTop,
	})
	if err != nil {
		return err
	}
	channels, cov, err := a.engine.RankEntities(ctx, domain.EntityQuery{
		Kind: domain.EntityChannel, SortBy: domain.SortByTotalDelta,
		SortDir: domain.SortDesc, Limit: reportTop,
	})
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Int("events", cov.Events).
		Msg("Report complete")

	if flagFormat == "json" {
		return printJSON(struct {
			Contracts []domain.ContractAggregate `json:"contracts"`
			Actors    []domain.EntityAggregate   `json:"actors"`
			Channels  []domain.EntityAggregate   `json:"channels"`
		}{contracts, actors, channels})
	}

	fmt.Printf("Top %d contracts by market change\n\n", reportTop)
	printContractTable(contracts)
	fmt.Printf("\nTop %d actors by total delta\n\n", reportTop)
	printEntityTable(actors)
	fmt.Printf("\nTop %d channels by total delta\n\n", reportTop)
	printEntityTable(channels)
	return nil
}
