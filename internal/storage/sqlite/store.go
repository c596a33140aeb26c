// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. A single objects table holds one row per key; payloads are
// swapped atomically with INSERT ... ON CONFLICT so readers never observe a
// half-written batch.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"surveyagg/internal/storage"
)

const defaultTable = "batch_objects"

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, func(), error) {
		return Open(ctx, cfg)
	})
}

// Repository is a SQLite-backed object store.
type Repository struct {
	db    *sql.DB
	table string
}

// Open opens the SQLite database named by cfg.DSN and ensures the objects
// table exists. DSN is passed straight to database/sql, for example:
//
//	"file:agg.db?cache=shared"
//	"agg.db"
func Open(ctx context.Context, cfg storage.Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		body       BLOB NOT NULL,
		checksum   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: create objects table: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, table: table}, closeFn, nil
}

// Put stores body under key, replacing any previous object.
func (r *Repository) Put(ctx context.Context, key string, body []byte) error {
	sum := fmt.Sprintf("%016x", xxh3.Hash(body))
	q := fmt.Sprintf(`INSERT INTO %s (key, body, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at`, r.table)
	if _, err := r.db.ExecContext(ctx, q, key, body, sum, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite: put %q: %w", key, err)
	}
	return nil
}

// Get returns the object under key after verifying its checksum.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf("SELECT body, checksum FROM %s WHERE key = ?", r.table)
	var body []byte
	var sum string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&body, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	if got := fmt.Sprintf("%016x", xxh3.Hash(body)); got != sum {
		return nil, fmt.Errorf("%w: %q", storage.ErrChecksum, key)
	}
	return body, nil
}
