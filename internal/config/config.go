// Package config loads the runtime configuration from a YAML file with
// defaults prefilled, so a partial file only overrides what it names.
// Secrets can be injected through environment variables instead of the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides for values that should not live in the file.
const (
	EnvPostgresDSN   = "CALLSCOPE_POSTGRES_DSN"
	EnvRedisPassword = "CALLSCOPE_REDIS_PASSWORD"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type PostgresConfig struct {
	DSN          string   `yaml:"dsn"`
	QueryTimeout Duration `yaml:"query_timeout"`
	PageSize     int      `yaml:"page_size"`
}

type RedisConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTL       Duration `yaml:"ttl"`
}

type FetcherConfig struct {
	BaseURL         string   `yaml:"base_url"`
	Timeout         Duration `yaml:"timeout"`
	RatePerSecond   float64  `yaml:"rate_per_second"`
	Burst           int      `yaml:"burst"`
	BreakerFailures uint32   `yaml:"breaker_failures"`
	BreakerCooldown Duration `yaml:"breaker_cooldown"`
}

type ResolverConfig struct {
	WriteBack bool `yaml:"write_back"`
}

type EngineConfig struct {
	Workers int `yaml:"workers"`
}

type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Resolver ResolverConfig `yaml:"resolver"`
	Engine   EngineConfig   `yaml:"engine"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Postgres: PostgresConfig{
			QueryTimeout: Duration(30 * time.Second),
			PageSize:     500,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "callscope:snapshot:",
			TTL:       Duration(10 * time.Minute),
		},
		Fetcher: FetcherConfig{
			BaseURL:         "https://api.dexscreener.com",
			Timeout:         Duration(10 * time.Second),
			RatePerSecond:   4,
			Burst:           8,
			BreakerFailures: 5,
			BreakerCooldown: Duration(30 * time.Second),
		},
		Resolver: ResolverConfig{WriteBack: true},
		Engine:   EngineConfig{Workers: 8},
		Admin: AdminConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path into a Config. Missing keys keep their defaults; an empty
// path returns pure defaults. Environment overrides apply last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if pw := os.Getenv(EnvRedisPassword); pw != "" {
		cfg.Redis.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that would misbehave at runtime.
func (c Config) Validate() error {
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Postgres.PageSize <= 0 {
		return fmt.Errorf("postgres.page_size must be positive, got %d", c.Postgres.PageSize)
	}
	if c.Fetcher.RatePerSecond <= 0 {
		return fmt.Errorf("fetcher.rate_per_second must be positive, got %v", c.Fetcher.RatePerSecond)
	}
	if c.Fetcher.Timeout.Std() <= 0 {
		return fmt.Errorf("fetcher.timeout must be positive, got %v", c.Fetcher.Timeout.Std())
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when redis is enabled")
	}
	if c.Admin.Enabled && c.Admin.Addr == "" {
		return fmt.Errorf("admin.addr required when admin server is enabled")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not recognized", c.Log.Level)
	}
	return nil
}
