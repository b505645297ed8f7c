// Package relational provides the DuckDB-backed key/value store that holds the
// local overview cache.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver
)

const memoryDSN = ":memory:"

// ErrNoPath is returned by NewFileDB for an empty path.
var ErrNoPath = errors.New("cache database path required")

// settings are applied once after the connection opens.
type settings struct {
	threads       int
	memoryLimitMB int
	openTimeout   time.Duration
}

// DuckDBClient owns the single connection to the cache database.
type DuckDBClient struct {
	db       *sql.DB
	dsn      string
	settings settings
}

// DuckDBOption configures the DuckDB client.
type DuckDBOption func(*settings)

// WithThreads sets the number of DuckDB worker threads.
func WithThreads(n int) DuckDBOption {
	return func(s *settings) { s.threads = n }
}

// WithMemoryLimit caps DuckDB memory in MB.
func WithMemoryLimit(mb int) DuckDBOption {
	return func(s *settings) { s.memoryLimitMB = mb }
}

// WithOpenTimeout bounds the first ping, which is when DuckDB takes the file lock.
func WithOpenTimeout(d time.Duration) DuckDBOption {
	return func(s *settings) { s.openTimeout = d }
}

// NewDuckDBClient opens dsn. An empty dsn opens an in-memory database.
func NewDuckDBClient(dsn string, opts ...DuckDBOption) (*DuckDBClient, error) {
	s := settings{threads: 1, memoryLimitMB: 64, openTimeout: 10 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", dsn, err)
	}

	// Every connection of an in-memory DSN sees its own database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if s.openTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.openTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", dsn, err)
	}

	c := &DuckDBClient{db: db, dsn: dsn, settings: s}
	if err := c.apply(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *DuckDBClient) apply(ctx context.Context) error {
	if c.settings.threads > 0 {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("SET threads = %d", c.settings.threads)); err != nil {
			return fmt.Errorf("set threads: %w", err)
		}
	}
	if c.settings.memoryLimitMB > 0 {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("SET memory_limit = '%dMB'", c.settings.memoryLimitMB)); err != nil {
			return fmt.Errorf("set memory limit: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB instance.
func (c *DuckDBClient) DB() *sql.DB {
	return c.db
}

// InMemory reports whether the cache lives only for this process.
func (c *DuckDBClient) InMemory() bool {
	return c.dsn == memoryDSN
}

// Close releases database resources.
func (c *DuckDBClient) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// NewInMemoryDB opens a throwaway cache database.
func NewInMemoryDB(opts ...DuckDBOption) (*DuckDBClient, error) {
	return NewDuckDBClient(memoryDSN, opts...)
}

// NewFileDB opens or creates the cache database at path, creating its
// directory when missing.
func NewFileDB(path string, opts ...DuckDBOption) (*DuckDBClient, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	return NewDuckDBClient(path, opts...)
}
