package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/soinglobal/callscope/internal/config"
	"github.com/soinglobal/callscope/internal/engine"
	"github.com/soinglobal/callscope/internal/fetch"
	"github.com/soinglobal/callscope/internal/observe"
	"github.com/soinglobal/callscope/internal/resolve"
	"github.com/soinglobal/callscope/internal/snapcache"
	"github.com/soinglobal/callscope/internal/store"
)

// app holds the wired runtime components for one CLI invocation. Every run
// gets a correlation id attached to all its log events.
type app struct {
	cfg      config.Config
	runID    string
	engine   *engine.Engine
	resolver resolve.Resolver
	metrics  *observe.Metrics

	db    *sqlx.DB
	redis *snapcache.RedisCache
	admin *observe.AdminServer
}

// buildApp loads configuration and wires the component graph. needStore
// selects whether a Postgres connection is required; the resolve command
// works without one.
func buildApp(ctx context.Context, needStore bool) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, runID: uuid.NewString()}
	log.Logger = log.With().Str("run_id", a.runID).Logger()

	registry := prometheus.NewRegistry()
	a.metrics = observe.NewMetrics(registry)

	var cache snapcache.Cache
	if cfg.Redis.Enabled {
		a.redis = snapcache.NewRedisCache(snapcache.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL.Std(),
		})
		cache = a.redis
	} else {
		cache = snapcache.NewMemoryCache(cfg.Redis.TTL.Std())
	}

	fetcher := fetch.NewDexScreenerClient(fetch.Options{
		BaseURL:         cfg.Fetcher.BaseURL,
		Timeout:         cfg.Fetcher.Timeout.Std(),
		RatePerSecond:   cfg.Fetcher.RatePerSecond,
		Burst:           cfg.Fetcher.Burst,
		BreakerFailures: cfg.Fetcher.BreakerFailures,
		BreakerCooldown: cfg.Fetcher.BreakerCooldown.Std(),
		Metrics:         a.metrics,
	})
	a.resolver = resolve.New(cache, fetcher, a.metrics, resolve.Options{
		WriteBack: cfg.Resolver.WriteBack,
	})

	var source store.CallSource = store.NewMemorySource()
	if needStore {
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres.dsn not configured (or set %s)", config.EnvPostgresDSN)
		}
		db, err := store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = db
		source = store.NewPostgresSource(db, cfg.Postgres.QueryTimeout.Std(), cfg.Postgres.PageSize)
	}

	a.engine = engine.New(source, a.resolver, engine.Options{Workers: cfg.Engine.Workers})

	if cfg.Admin.Enabled {
		checks := []observe.HealthCheck{}
		if a.db != nil {
			db := a.db
			checks = append(checks, observe.HealthCheck{
				Name:  "postgres",
				Check: func(ctx context.Context) error { return db.PingContext(ctx) },
			})
		}
		if a.redis != nil {
			redis := a.redis
			checks = append(checks, observe.HealthCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return redis.Health(ctx) },
			})
		}
		a.admin = observe.NewAdminServer(cfg.Admin.Addr, registry, checks...)
		a.admin.Start()
	}

	return a, nil
}

// Close releases the app's external connections.
func (a *app) Close() {
	if a.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.admin.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Admin server shutdown failed")
		}
		cancel()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Redis close failed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Postgres close failed")
		}
	}
}
