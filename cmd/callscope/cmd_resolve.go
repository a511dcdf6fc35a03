package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/soinglobal/callscope/internal/resolve"
)

// Accepts EVM-style 0x hex addresses and base58 mint addresses.
var addressPattern = regexp.MustCompile(`^(0x[0-9a-fA-F]{40}|[1-9A-HJ-NP-Za-km-z]{32,44})$`)

// resolveCmd implements the 'callscope resolve' command
var resolveCmd = &cobra.Command{
	Use:   "resolve <contract>",
	Short: "Resolve current market state for one contract",
	Long: `Resolve looks up a single contract through the snapshot cache and,
on a miss, the live DexScreener API, then prints the snapshot with its
provenance. No call history is consulted.

Example usage:
  callscope resolve 7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs
  callscope resolve 0xdac17f958d2ee523a2206206994597c13d831ec7 --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	contract := args[0]
	if !addressPattern.MatchString(contract) {
		return fmt.Errorf("%q does not look like a contract address", contract)
	}

	ctx := context.Background()
	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.resolver.Resolve(ctx, contract)
	if err != nil && !errors.Is(err, resolve.ErrUnresolved) {
		return err
	}

	if flagFormat == "json" {
		return printJSON(struct {
			Contract string      `json:"contract"`
			Snapshot interface{} `json:"snapshot"`
			Resolved bool        `json:"resolved"`
		}{contract, snap, err == nil})
	}

	printSnapshot(contract, snap)
	if err != nil {
		fmt.Println("\nMarket state could not be resolved; fields above are unknown.")
	}
	return nil
}
