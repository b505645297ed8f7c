package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SchemaSQL creates the key/value table. Values are opaque serialized strings.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS kv_entries (
  entry_key   VARCHAR PRIMARY KEY,
  value       VARCHAR NOT NULL,
  updated_at  TIMESTAMP NOT NULL DEFAULT now()
);
`

// Repo implements EntryStore on a DuckDB database.
type Repo struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewRepo wraps db. Call Migrate before first use.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// Migrate creates the schema if it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("migrate kv_entries: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE entry_key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put upserts the value under key inside a transaction.
func (r *Repo) Put(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv_entries (entry_key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, r.now().UTC(),
	); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return tx.Commit()
}

// Delete removes key.
func (r *Repo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

var _ EntryStore = (*Repo)(nil)
