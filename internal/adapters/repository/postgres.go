package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/metrics"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresConfig configures PostgresStore.
type PostgresConfig struct {
	URL             string
	Table           string
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Validate checks the configuration.
func (c PostgresConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: database url is required", ErrInvalidConfig)
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidConfig, c.Table)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("%w: database ping timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("%w: max open conns must be >= 1", ErrInvalidConfig)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("%w: max idle conns must be >= 0", ErrInvalidConfig)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("%w: max idle conns must be <= max open conns", ErrInvalidConfig)
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return fmt.Errorf("%w: connection lifetimes must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// OpenPostgres opens a pgx-backed pool and pings it.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// PostgresStore keeps records in one table keyed by job id.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore opens the database and creates the results table.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewPostgresStoreWithDB(db, cfg.Table)
	if _, err := db.ExecContext(ctx, s.schema()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an open pool. The table must already exist.
func NewPostgresStoreWithDB(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

// schema keeps documents as JSON, not JSONB, so reads return the bytes that
// were written with column order intact.
func (s *PostgresStore) schema() string {
	return `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	job_id            TEXT PRIMARY KEY,
	job_timestamp     BIGINT NOT NULL,
	results           JSON NOT NULL,
	spearman_results  JSON,
	spearman_p_values JSON,
	written_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`
}

// Put implements Store.Put as an upsert.
func (s *PostgresStore) Put(ctx context.Context, rec model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	query := `INSERT INTO ` + s.table + ` (job_id, job_timestamp, results, spearman_results, spearman_p_values)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (job_id) DO UPDATE SET
	job_timestamp = EXCLUDED.job_timestamp,
	results = EXCLUDED.results,
	spearman_results = EXCLUDED.spearman_results,
	spearman_p_values = EXCLUDED.spearman_p_values,
	written_at = now()`
	_, err := s.db.ExecContext(ctx, query,
		rec.JobID, rec.JobTimestamp, string(rec.Results),
		nullableJSON(rec.SpearmanResults), nullableJSON(rec.SpearmanPValues))
	if err != nil {
		metrics.RecordStoreError(BackendPostgres, "put")
		return err
	}
	return nil
}

// Get implements Store.Get.
func (s *PostgresStore) Get(ctx context.Context, jobID string) (model.Record, error) {
	query := `SELECT job_id, job_timestamp, results, spearman_results, spearman_p_values
FROM ` + s.table + ` WHERE job_id = $1`

	var (
		rec              model.Record
		results          []byte
		spearman, pvalue []byte
	)
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&rec.JobID, &rec.JobTimestamp, &results, &spearman, &pvalue)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError(BackendPostgres, "get")
		return model.Record{}, err
	}
	rec.Results = results
	if spearman != nil {
		rec.SpearmanResults = spearman
	}
	if pvalue != nil {
		rec.SpearmanPValues = pvalue
	}
	return rec, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// nullableJSON maps an absent document to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
