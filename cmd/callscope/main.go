package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soinglobal/callscope/internal/config"
)

var (
	flagConfig   string
	flagFormat   string
	flagLogLevel string
)

// rootCmd is the base command for the callscope CLI
var rootCmd = &cobra.Command{
	Use:   "callscope",
	Short: "Promotional call correlation and ranking engine",
	Long: `callscope correlates promotional token calls with market outcomes.
It joins recorded call events against current market state from DexScreener
and ranks contracts, actors, and channels by how those calls played out.

Example usage:
  callscope rank contracts --sort=changePercent --limit=20
  callscope rank actors --sort=totalDelta
  callscope calls <contract>                  # Call history for one contract
  callscope resolve <contract>                # Live market lookup
  callscope report                            # Combined top-N report`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override configured log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures the global zerolog logger from config, with the
// --log-level flag taking precedence.
func setupLogging(cfg config.LogConfig) error {
	level := cfg.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	return nil
}
