// Package postgres implements a Postgres-backed storage.Repository using
// pgx v5. It mirrors the sqlite backend's single-table layout and relies on
// INSERT ... ON CONFLICT for atomic payload replacement.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/xxh3"

	"surveyagg/internal/storage"
)

const defaultTable = "batch_objects"

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, func(), error) {
		return Open(ctx, cfg)
	})
}

// Repository is a Postgres-backed object store.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// Open connects a pgx pool and ensures the objects table exists.
func Open(ctx context.Context, cfg storage.Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		body       BYTEA NOT NULL,
		checksum   TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: create objects table: %w", err)
	}

	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, table: table}, closeFn, nil
}

// Put stores body under key, replacing any previous object.
func (r *Repository) Put(ctx context.Context, key string, body []byte) error {
	sum := fmt.Sprintf("%016x", xxh3.Hash(body))
	q := fmt.Sprintf(`INSERT INTO %s (key, body, checksum, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			checksum = EXCLUDED.checksum,
			updated_at = EXCLUDED.updated_at`, r.table)
	if _, err := r.pool.Exec(ctx, q, key, body, sum, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres: put %q: %w", key, err)
	}
	return nil
}

// Get returns the object under key after verifying its checksum.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf("SELECT body, checksum FROM %s WHERE key = $1", r.table)
	var body []byte
	var sum string
	err := r.pool.QueryRow(ctx, q, key).Scan(&body, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %q: %w", key, err)
	}
	if got := fmt.Sprintf("%016x", xxh3.Hash(body)); got != sum {
		return nil, fmt.Errorf("%w: %q", storage.ErrChecksum, key)
	}
	return body, nil
}
