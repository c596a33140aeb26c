package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"
)

const defaultTable = "batch_messages"

// Config configures the SQLite queue backend.
type Config struct {
	// DSN is the SQLite database, shared with or separate from the object
	// store.
	DSN string `json:"dsn" yaml:"dsn"`
	// Table is the message table name; defaults to "batch_messages".
	Table string `json:"table" yaml:"table"`
	// Visibility is how long a received message stays hidden before it may
	// be redelivered. Zero means 5 minutes.
	Visibility time.Duration `json:"visibility" yaml:"visibility"`
}

// SQLite is a single-table SQLite queue.
type SQLite struct {
	db         *sql.DB
	table      string
	visibility time.Duration
}

// OpenSQLite opens the queue database and ensures the message table exists.
func OpenSQLite(ctx context.Context, cfg Config) (*SQLite, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("queue: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("queue: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("queue: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		group_id   TEXT NOT NULL,
		body       BLOB NOT NULL,
		checksum   TEXT NOT NULL,
		receipt    TEXT,
		visible_at TEXT NOT NULL,
		sent_at    TEXT NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("queue: create message table: %w", err)
	}

	vis := cfg.Visibility
	if vis <= 0 {
		vis = 5 * time.Minute
	}
	closeFn := func() { db.Close() }
	return &SQLite{db: db, table: table, visibility: vis}, closeFn, nil
}

// Send enqueues body for the group.
func (q *SQLite) Send(ctx context.Context, groupID string, body []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	sum := fmt.Sprintf("%016x", xxh3.Hash(body))
	stmt := fmt.Sprintf(`INSERT INTO %s (id, group_id, body, checksum, receipt, visible_at, sent_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?)`, q.table)
	if _, err := q.db.ExecContext(ctx, stmt, uuid.NewString(), groupID, body, sum, now, now); err != nil {
		return fmt.Errorf("queue: send: %w", err)
	}
	return nil
}

// Receive claims the oldest visible message for the group. The claim is a
// compare-and-set on visible_at keyed by the previous receipt, so two
// concurrent consumers cannot claim the same delivery.
func (q *SQLite) Receive(ctx context.Context, groupID string) (*Message, error) {
	now := time.Now().UTC()
	sel := fmt.Sprintf(`SELECT id, body, checksum FROM %s
		WHERE group_id = ? AND visible_at <= ?
		ORDER BY sent_at LIMIT 1`, q.table)

	for {
		var (
			id   string
			body []byte
			sum  string
		)
		err := q.db.QueryRowContext(ctx, sel, groupID, now.Format(time.RFC3339Nano)).Scan(&id, &body, &sum)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		if err != nil {
			return nil, fmt.Errorf("queue: receive: %w", err)
		}
		if got := fmt.Sprintf("%016x", xxh3.Hash(body)); got != sum {
			return nil, fmt.Errorf("queue: message %s failed checksum verification", id)
		}

		receipt := uuid.NewString()
		upd := fmt.Sprintf(`UPDATE %s SET receipt = ?, visible_at = ?
			WHERE id = ? AND visible_at <= ?`, q.table)
		res, err := q.db.ExecContext(ctx, upd, receipt,
			now.Add(q.visibility).Format(time.RFC3339Nano), id, now.Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("queue: claim: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("queue: claim: %w", err)
		}
		if n == 0 {
			// Lost the race for this message; try the next one.
			continue
		}
		return &Message{ID: id, GroupID: groupID, Body: body, Receipt: receipt}, nil
	}
}

// Delete removes a claimed message. Deleting an unknown or stale receipt is
// an error so consumers notice double deletes.
func (q *SQLite) Delete(ctx context.Context, receipt string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE receipt = ?", q.table)
	res, err := q.db.ExecContext(ctx, stmt, receipt)
	if err != nil {
		return fmt.Errorf("queue: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue: delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("queue: no message with receipt %q", receipt)
	}
	return nil
}
