package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/metrics"
)

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration // zero keeps records forever
	PingTimeout time.Duration
}

// Validate checks the configuration.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: redis address is required", ErrInvalidConfig)
	}
	if c.DB < 0 {
		return fmt.Errorf("%w: redis db must be >= 0", ErrInvalidConfig)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: redis ttl must be >= 0", ErrInvalidConfig)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("%w: redis ping timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// RedisStore keeps each record as a JSON string under prefix:job:<id>.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Put implements Store.Put.
func (s *RedisStore) Put(ctx context.Context, rec model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.JobID), data, s.ttl).Err(); err != nil {
		metrics.RecordStoreError(BackendRedis, "put")
		return err
	}
	return nil
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, jobID string) (model.Record, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Record{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError(BackendRedis, "get")
		return model.Record{}, err
	}

	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		metrics.RecordStoreError(BackendRedis, "decode")
		return model.Record{}, fmt.Errorf("decode record %s: %w", jobID, err)
	}
	return rec, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(jobID string) string {
	if s.prefix == "" {
		return "job:" + jobID
	}
	return fmt.Sprintf("%s:job:%s", s.prefix, jobID)
}
