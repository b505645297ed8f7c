package relational

import (
	"context"
	"fmt"
	"time"
)

// EntryInfo describes a stored entry without its value.
type EntryInfo struct {
	Key       string    `json:"key"`
	Bytes     int64     `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListEntries returns the size and write time of every stored entry, newest first.
func (r *Repo) ListEntries(ctx context.Context) ([]EntryInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_key, strlen(value), updated_at
		FROM kv_entries
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list entries failed: %w", err)
	}
	defer rows.Close()

	var out []EntryInfo
	for rows.Next() {
		var e EntryInfo
		if err := rows.Scan(&e.Key, &e.Bytes, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stat returns the EntryInfo for key; ok is false when absent.
func (r *Repo) Stat(ctx context.Context, key string) (EntryInfo, bool, error) {
	entries, err := r.ListEntries(ctx)
	if err != nil {
		return EntryInfo{}, false, err
	}
	for _, e := range entries {
		if e.Key == key {
			return e, true, nil
		}
	}
	return EntryInfo{}, false, nil
}
