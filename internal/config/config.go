// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

// Fan-out backends.
const (
	FanoutMemory = "memory"
	FanoutRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BidIncrement is the proxy step as a decimal string.
	BidIncrement string `koanf:"bid_increment"`

	// MaxResolveAttempts bounds retries on ledger version conflicts.
	MaxResolveAttempts int `koanf:"max_resolve_attempts"`

	SweepInterval    time.Duration `koanf:"sweep_interval"`
	SweepConcurrency int           `koanf:"sweep_concurrency"`

	LedgerBackend string `koanf:"ledger_backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	FanoutBackend string `koanf:"fanout_backend"`

	// NATSURL enables the downstream event stream when set.
	NATSURL           string `koanf:"nats_url"`
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`
	// NATSStream switches publishing to JetStream when set.
	NATSStream string `koanf:"nats_stream"`

	DispatchShards    int `koanf:"dispatch_shards"`
	DispatchQueueSize int `koanf:"dispatch_queue_size"`
	SubscriberBuffer  int `koanf:"subscriber_buffer"`

	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// SeedFile optionally points at a YAML catalog loaded into the ledger at start.
	SeedFile string `koanf:"seed_file"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		BidIncrement:         "1",
		MaxResolveAttempts:   5,
		SweepInterval:        time.Minute,
		SweepConcurrency:     8,
		LedgerBackend:        LedgerMemory,
		RedisAddr:            "localhost:6379",
		FanoutBackend:        FanoutMemory,
		NATSSubjectPrefix:    "auction.events",
		DispatchShards:       runtime.NumCPU(),
		DispatchQueueSize:    4096,
		SubscriberBuffer:     64,
		IdempotencyCacheSize: 100_000,
	}
}

// Increment returns the parsed bid increment.
func (c *Config) Increment() decimal.Decimal {
	d, err := decimal.NewFromString(c.BidIncrement)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	inc, err := decimal.NewFromString(c.BidIncrement)
	if err != nil || !inc.IsPositive() {
		return fmt.Errorf("%w: bid_increment must be a positive decimal, got %q", ErrInvalidConfig, c.BidIncrement)
	}
	if c.MaxResolveAttempts < 1 {
		return fmt.Errorf("%w: max_resolve_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	}
	if c.SweepConcurrency < 1 || c.DispatchShards < 1 || c.DispatchQueueSize < 1 || c.SubscriberBuffer < 1 {
		return fmt.Errorf("%w: concurrency, shard and buffer sizes must be positive", ErrInvalidConfig)
	}
	if c.IdempotencyCacheSize < 1 {
		return fmt.Errorf("%w: idempotency_cache_size must be positive", ErrInvalidConfig)
	}
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr required for redis ledger", ErrInvalidConfig)
		}
	case LedgerPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn required for postgres ledger", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ledger_backend %q", ErrInvalidConfig, c.LedgerBackend)
	}
	switch c.FanoutBackend {
	case FanoutMemory:
	case FanoutRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr required for redis fanout", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown fanout_backend %q", ErrInvalidConfig, c.FanoutBackend)
	}
	return nil
}
