// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory      = "memory"
	BackendRedis       = "redis"
	BackendPostgres    = "postgres"
	BackendObjectStore = "objectstore"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the number of dispatched jobs waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of job workers.
	WorkerCount int `koanf:"worker_count"`

	// StatusSize bounds the number of tracked job states.
	StatusSize int `koanf:"status_size"`

	// JobTimeout bounds one job; zero means unbounded.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// MaxSamples caps the samples one uncertainty request may ask for.
	MaxSamples int `koanf:"max_samples"`

	// Models lists the models to load; empty loads all of them.
	Models []string `koanf:"models"`

	// SamplingRule is L (Latin hypercube) or R (random).
	SamplingRule string `koanf:"sampling_rule"`

	// SamplingSeed pins the sampler so studies are reproducible.
	SamplingSeed uint64 `koanf:"sampling_seed"`

	// PersistPValues stores Spearman p-values next to the coefficients.
	PersistPValues bool `koanf:"persist_p_values"`

	// StoreBackend selects the result store: memory, redis, postgres or objectstore.
	StoreBackend string `koanf:"store_backend"`

	// StoreMaxRecords bounds the memory store; zero is unbounded.
	StoreMaxRecords int `koanf:"store_max_records"`

	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	RedisPrefix   string        `koanf:"redis_prefix"`
	RedisTTL      time.Duration `koanf:"redis_ttl"`

	DatabaseURL   string `koanf:"database_url"`
	DatabaseTable string `koanf:"database_table"`

	ObjectStoreEndpoint  string `koanf:"objectstore_endpoint"`
	ObjectStoreAccessKey string `koanf:"objectstore_access_key"`
	ObjectStoreSecretKey string `koanf:"objectstore_secret_key"`
	ObjectStoreBucket    string `koanf:"objectstore_bucket"`
	ObjectStoreRegion    string `koanf:"objectstore_region"`
	ObjectStorePrefix    string `koanf:"objectstore_prefix"`
	ObjectStoreUseSSL    bool   `koanf:"objectstore_use_ssl"`

	// StorePingTimeout bounds the connection check of remote backends.
	StorePingTimeout time.Duration `koanf:"store_ping_timeout"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "json",
		Addr:              ":9080",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		StatusSize:        50_000,
		MaxSamples:        100_000,
		SamplingRule:      "L",
		SamplingSeed:      42,
		StoreBackend:      BackendMemory,
		RedisPrefix:       "simuq",
		DatabaseTable:     "job_results",
		ObjectStoreBucket: "simuq-results",
		StorePingTimeout:  5 * time.Second,
	}
}

// Validate checks values that the rest of the process relies on. Backend
// connection details are checked again by the store that uses them.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.StatusSize < 1:
		return fmt.Errorf("%w: status_size must be positive, got %d", ErrInvalidConfig, c.StatusSize)
	case c.MaxSamples < 1:
		return fmt.Errorf("%w: max_samples must be positive, got %d", ErrInvalidConfig, c.MaxSamples)
	case c.JobTimeout < 0:
		return fmt.Errorf("%w: job_timeout must not be negative", ErrInvalidConfig)
	case c.StoreMaxRecords < 0:
		return fmt.Errorf("%w: store_max_records must not be negative", ErrInvalidConfig)
	}

	switch strings.ToUpper(strings.TrimSpace(c.SamplingRule)) {
	case "L", "R":
	default:
		return fmt.Errorf("%w: sampling_rule must be L or R, got %q", ErrInvalidConfig, c.SamplingRule)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres backend", ErrInvalidConfig)
		}
	case BackendObjectStore:
		if c.ObjectStoreEndpoint == "" || c.ObjectStoreBucket == "" {
			return fmt.Errorf("%w: objectstore_endpoint and objectstore_bucket are required for the objectstore backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
