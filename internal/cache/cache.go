// Package cache persists the most recent overview snapshot so the panel can
// render immediately on start-up. Cache problems never reach the caller: a
// broken, foreign or outdated entry is cleared and reported as a miss.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shirou/gopsutil/v4/disk"

	"orphanfinder/internal/database/relational"
	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
)

const (
	// DefaultKey is the fixed name of the cache entry.
	DefaultKey = "statistics_orphan_finder_cache"
	// Version is the current entry schema version.
	Version = 1
	// DefaultMaxAge is the age after which cached data is reported stale.
	DefaultMaxAge = 12 * time.Hour
)

var (
	ErrMalformed       = errors.New("cache entry malformed")
	ErrVersionMismatch = errors.New("cache entry version mismatch")
	ErrQuotaExceeded   = errors.New("cache quota exceeded")
)

// Entry is the serialized form of a cached snapshot.
type Entry struct {
	Version   int     `json:"version"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
	Data      Payload `json:"data"`
}

// Payload is the cached overview.
type Payload struct {
	DatabaseSize    *model.DatabaseSize   `json:"databaseSize"`
	StorageEntities []model.EntityRecord  `json:"storageEntities"`
	StorageSummary  model.SummaryCounters `json:"storageSummary"`
}

// Metadata describes the stored entry without decoding its entities.
type Metadata struct {
	Exists    bool
	Version   int
	Timestamp time.Time
	Age       time.Duration
	Entities  int
}

// Cache is the persistent snapshot cache.
type Cache struct {
	store    relational.EntryStore
	key      string
	version  int
	maxBytes int64
	dir      string
	minFree  uint64
	log      logging.Logger
	now      func() time.Time
	diskFree func(path string) (uint64, error)
	schema   *jsonschema.Schema
}

// Option configures a Cache.
type Option func(*Cache)

// WithKey overrides the entry key.
func WithKey(key string) Option {
	return func(c *Cache) { c.key = key }
}

// WithVersion overrides the schema version written and accepted.
func WithVersion(v int) Option {
	return func(c *Cache) { c.version = v }
}

// WithMaxBytes rejects serialized entries larger than n.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// WithDiskQuota refuses writes when the filesystem holding dbPath has less than
// minFree bytes available. In-memory databases skip the check.
func WithDiskQuota(dbPath string, minFree uint64) Option {
	return func(c *Cache) {
		if dbPath == "" || dbPath == ":memory:" {
			return
		}
		c.dir = filepath.Dir(dbPath)
		c.minFree = minFree
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a Cache on store.
func New(store relational.EntryStore, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:    store,
		key:      DefaultKey,
		version:  Version,
		log:      logging.Discard(),
		now:      time.Now,
		diskFree: freeBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	schema, err := compileEntrySchema()
	if err != nil {
		return nil, fmt.Errorf("compile cache schema: %w", err)
	}
	c.schema = schema
	return c, nil
}

// Save writes snap with the current time. It reports false instead of failing.
func (c *Cache) Save(ctx context.Context, snap *model.Snapshot) bool {
	if snap == nil {
		return false
	}
	entry := Entry{
		Version:   c.version,
		Timestamp: c.now().UnixMilli(),
		Data: Payload{
			DatabaseSize:    snap.DatabaseSize,
			StorageEntities: snap.Entities,
			StorageSummary:  snap.Summary,
		},
	}
	if entry.Data.StorageEntities == nil {
		entry.Data.StorageEntities = []model.EntityRecord{}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn(ctx, "cache save failed", "err", err)
		return false
	}
	if err := c.checkQuota(int64(len(raw))); err != nil {
		c.log.Warn(ctx, "cache save rejected", "err", err, "bytes", len(raw))
		return false
	}
	if err := c.store.Put(ctx, c.key, string(raw)); err != nil {
		c.log.Warn(ctx, "cache save failed", "err", err)
		return false
	}

	c.log.Debug(ctx, "cache saved", "entities", len(snap.Entities), "bytes", len(raw))
	return true
}

// Load returns the cached snapshot, or nil when there is none. Malformed and
// version-mismatched entries are cleared.
func (c *Cache) Load(ctx context.Context) *model.Snapshot {
	entry, err := c.read(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errNotFound):
		case errors.Is(err, ErrMalformed), errors.Is(err, ErrVersionMismatch):
			c.log.Info(ctx, "discarding cache entry", "err", err)
			c.Clear(ctx)
		default:
			c.log.Warn(ctx, "cache read failed", "err", err)
		}
		return nil
	}

	snap := model.NewSnapshot(
		entry.Data.StorageEntities,
		entry.Data.StorageSummary,
		entry.Data.DatabaseSize,
		time.UnixMilli(entry.Timestamp),
	)
	c.log.Debug(ctx, "cache loaded", "entities", snap.Len(), "age", c.now().Sub(snap.CapturedAt))
	return snap
}

// Clear removes the entry.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.store.Delete(ctx, c.key); err != nil {
		c.log.Warn(ctx, "cache clear failed", "err", err)
	}
}

// Age reports how old snap is, or the stored entry when snap is nil.
// ok is false when no timestamp is available.
func (c *Cache) Age(ctx context.Context, snap *model.Snapshot) (time.Duration, bool) {
	var ts time.Time
	if snap != nil {
		ts = snap.CapturedAt
	} else {
		ts = c.Metadata(ctx).Timestamp
	}
	if ts.IsZero() {
		return 0, false
	}
	return c.now().Sub(ts), true
}

// IsStale reports whether the age is unknown or above maxAge.
func (c *Cache) IsStale(ctx context.Context, maxAge time.Duration, snap *model.Snapshot) bool {
	age, ok := c.Age(ctx, snap)
	return !ok || age > maxAge
}

// Metadata reads the entry header. Invalid entries report Exists=false but are
// left in place; Load is the only path that clears.
func (c *Cache) Metadata(ctx context.Context) Metadata {
	entry, err := c.read(ctx)
	if err != nil {
		return Metadata{}
	}
	ts := time.UnixMilli(entry.Timestamp)
	return Metadata{
		Exists:    true,
		Version:   entry.Version,
		Timestamp: ts,
		Age:       c.now().Sub(ts),
		Entities:  len(entry.Data.StorageEntities),
	}
}

var errNotFound = errors.New("cache entry not found")

func (c *Cache) read(ctx context.Context) (*Entry, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if !ok {
		return nil, errNotFound
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	obj, isObj := doc.(map[string]any)
	if !isObj {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if v, _ := obj["version"].(json.Number); v.String() != fmt.Sprint(c.version) {
		return nil, fmt.Errorf("%w: got %v, want %d", ErrVersionMismatch, obj["version"], c.version)
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &entry, nil
}

func (c *Cache) checkQuota(size int64) error {
	if c.maxBytes > 0 && size > c.maxBytes {
		return fmt.Errorf("%w: entry is %d bytes, limit %d", ErrQuotaExceeded, size, c.maxBytes)
	}
	if c.dir == "" || c.minFree == 0 {
		return nil
	}
	free, err := c.diskFree(c.dir)
	if err != nil {
		// Unknown free space does not block the write.
		return nil
	}
	if free < c.minFree+uint64(size) {
		return fmt.Errorf("%w: %d bytes free in %s", ErrQuotaExceeded, free, c.dir)
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// =============================================================================
// ENTRY SCHEMA
// =============================================================================

const entrySchemaURL = "orphanfinder://cache-entry.schema.json"

const entrySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "timestamp", "data"],
  "properties": {
    "version":   {"type": "integer"},
    "timestamp": {"type": "integer", "minimum": 0},
    "data": {
      "type": "object",
      "required": ["storageEntities", "storageSummary"],
      "properties": {
        "databaseSize": {"type": ["object", "null"]},
        "storageSummary": {"type": "object"},
        "storageEntities": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["entity_id"],
            "properties": {
              "entity_id": {"type": "string", "minLength": 1},
              "states_count": {"type": "integer"},
              "stats_short_count": {"type": "integer"},
              "stats_long_count": {"type": "integer"}
            }
          }
        }
      }
    }
  }
}`

func compileEntrySchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(entrySchemaURL, bytes.NewReader([]byte(entrySchema))); err != nil {
		return nil, err
	}
	return compiler.Compile(entrySchemaURL)
}
