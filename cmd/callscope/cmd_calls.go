package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// callsCmd implements the 'callscope calls' command
var callsCmd = &cobra.Command{
	Use:   "calls <contract>",
	Short: "List all recorded calls for one contract",
	Long: `Calls shows the full call history of a single contract address with
the baseline market state captured at each call, plus the distinct set of
actors who mentioned it.

Example usage:
  callscope calls 7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs
  callscope calls 0xdac17f958d2ee523a2206206994597c13d831ec7 --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runCalls,
}

func init() {
	rootCmd.AddCommand(callsCmd)
}

func runCalls(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	events, actors, err := a.engine.ContractCalls(ctx, args[0])
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return printJSON(struct {
			Contract string      `json:"contract"`
			Actors   []string    `json:"actors"`
			Calls    interface{} `json:"calls"`
		}{args[0], actors, events})
	}

	if len(events) == 0 {
		fmt.Printf("No recorded calls for %s\n", args[0])
		return nil
	}
	printCallTable(events)
	fmt.Printf("\n%d calls by %d actors: %s\n", len(events), len(actors), strings.Join(actors, ", "))
	return nil
}
