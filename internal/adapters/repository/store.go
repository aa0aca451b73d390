// Package repository holds the job result store interface and its backends.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/simuq/internal/domain/model"
)

// Backend names accepted in configuration.
const (
	BackendMemory      = "memory"
	BackendRedis       = "redis"
	BackendPostgres    = "postgres"
	BackendObjectStore = "objectstore"
)

// Store persists one record per job id. A second Put for the same id
// overwrites the first.
type Store interface {
	// Put writes rec under rec.JobID.
	Put(ctx context.Context, rec model.Record) error

	// Get returns the record for jobID.
	// Returns ErrNotFound if no record was written.
	Get(ctx context.Context, jobID string) (model.Record, error)

	// Close releases the backend connection.
	Close() error
}

func validate(rec model.Record) error {
	if rec.JobID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Config selects and configures a backend.
type Config struct {
	Backend     string
	MaxRecords  int
	Redis       RedisConfig
	Postgres    PostgresConfig
	ObjectStore ObjectStoreConfig
}

// Open connects the configured backend. An empty backend is memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(ctx, WithMaxRecords(cfg.MaxRecords)), nil
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case BackendPostgres:
		s, err = NewPostgresStore(ctx, cfg.Postgres)
	case BackendObjectStore:
		s, err = NewObjectStore(ctx, cfg.ObjectStore)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
