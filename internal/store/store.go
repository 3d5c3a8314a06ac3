// Package store persists run history and mapping presets in PostgreSQL.
//
// The store is optional: the server runs without it when no DATABASE_URL is
// configured, and history and preset endpoints then answer 503.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/casesync/internal/config"
)

// Store is a pgx-backed implementation of core.RunRecorder and core.PresetStore.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool sized from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS processing_runs (
		id              UUID PRIMARY KEY,
		file_name       TEXT,
		account_id      TEXT,
		status          TEXT NOT NULL,
		error           TEXT,
		success_count   INTEGER NOT NULL,
		error_count     INTEGER NOT NULL,
		total_processed INTEGER NOT NULL,
		errors          JSONB NOT NULL DEFAULT '[]',
		ip_address      INET,
		user_agent      TEXT,
		started_at      TIMESTAMPTZ NOT NULL,
		duration_ms     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS processing_runs_started_at_idx ON processing_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS mapping_presets (
		id              UUID PRIMARY KEY,
		name            TEXT NOT NULL,
		sku_column      TEXT NOT NULL,
		barcode_column  TEXT NOT NULL,
		quantity_column TEXT NOT NULL,
		csv_headers     JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT mapping_presets_name_unique UNIQUE (name)
	)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
