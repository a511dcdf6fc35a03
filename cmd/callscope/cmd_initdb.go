package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soinglobal/callscope/internal/config"
	"github.com/soinglobal/callscope/internal/store"
)

// initdbCmd implements the 'callscope initdb' command
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the call_events table and indexes if absent",
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn not configured (or set %s)", config.EnvPostgresDSN)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	src := store.NewPostgresSource(db, cfg.Postgres.QueryTimeout.Std(), cfg.Postgres.PageSize)
	if err := src.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info().Msg("Schema ensured")
	fmt.Println("call_events schema is in place")
	return nil
}
