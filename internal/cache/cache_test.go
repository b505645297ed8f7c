package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orphanfinder/internal/database/relational"
	"orphanfinder/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newRepo(t *testing.T) *relational.Repo {
	t.Helper()
	client, err := relational.NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	repo := relational.NewRepo(client.DB())
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func sampleSnapshot() *model.Snapshot {
	last := model.NewTimestamp(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	return model.NewSnapshot(
		[]model.EntityRecord{
			{EntityID: "sensor.kitchen_temp", InRegistry: true, RegistryStatus: model.RegistryEnabled,
				InStatesMeta: true, InStates: true, StatesCount: 120, LastStateUpdate: last},
			{EntityID: "sensor.gone", RegistryStatus: model.RegistryNotInRegistry,
				InStatisticsMeta: true, InStatisticsLongTerm: true, StatsLongCount: 40},
		},
		model.SummaryCounters{TotalEntities: 2, DeletedFromRegistry: 1},
		&model.DatabaseSize{States: 120, StatesSize: 4096},
		time.Time{},
	)
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(newRepo(t), WithClock(clk.Now))
	require.NoError(t, err)

	saveTime := clk.Now()
	snap := sampleSnapshot()
	require.True(t, c.Save(ctx, snap))

	loaded := c.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Entities, loaded.Entities)
	assert.Equal(t, snap.Summary, loaded.Summary)
	assert.Equal(t, snap.DatabaseSize, loaded.DatabaseSize)
	assert.False(t, loaded.CapturedAt.Before(saveTime))
}

func TestCache_LoadEmpty(t *testing.T) {
	c, err := New(newRepo(t))
	require.NoError(t, err)
	assert.Nil(t, c.Load(context.Background()))
}

func TestCache_Staleness(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(newRepo(t), WithClock(clk.Now))
	require.NoError(t, err)

	assert.True(t, c.IsStale(ctx, DefaultMaxAge, nil), "no cache is stale")
	_, ok := c.Age(ctx, nil)
	assert.False(t, ok)

	require.True(t, c.Save(ctx, sampleSnapshot()))
	assert.False(t, c.IsStale(ctx, DefaultMaxAge, nil))

	loaded := c.Load(ctx)
	clk.Advance(DefaultMaxAge - time.Minute)
	assert.False(t, c.IsStale(ctx, DefaultMaxAge, loaded))

	clk.Advance(2 * time.Minute)
	assert.True(t, c.IsStale(ctx, DefaultMaxAge, loaded))
	age, ok := c.Age(ctx, loaded)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxAge+time.Minute, age)
}

func TestCache_VersionMismatchClears(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	old, err := New(repo, WithVersion(0))
	require.NoError(t, err)
	require.True(t, old.Save(ctx, sampleSnapshot()))

	c, err := New(repo)
	require.NoError(t, err)
	assert.Nil(t, c.Load(ctx))
	assert.Nil(t, c.Load(ctx))

	_, ok, err := repo.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok, "mismatched entry should be removed")
}

func TestCache_MalformedClears(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{broken"},
		{"array", "[]"},
		{"missing entities", `{"version":1,"timestamp":1,"data":{"storageSummary":{}}}`},
		{"entity without id", `{"version":1,"timestamp":1,"data":{"storageSummary":{},"storageEntities":[{"states_count":1}]}}`},
		{"negative timestamp", `{"version":1,"timestamp":-5,"data":{"storageSummary":{},"storageEntities":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)
			require.NoError(t, repo.Put(ctx, DefaultKey, tt.raw))

			c, err := New(repo)
			require.NoError(t, err)
			assert.Nil(t, c.Load(ctx))

			_, ok, err := repo.Get(ctx, DefaultKey)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCache_MetadataLeavesInvalidEntry(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Put(ctx, DefaultKey, "{broken"))

	c, err := New(repo)
	require.NoError(t, err)
	assert.False(t, c.Metadata(ctx).Exists)

	_, ok, err := repo.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_Metadata(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(newRepo(t), WithClock(clk.Now))
	require.NoError(t, err)

	require.True(t, c.Save(ctx, sampleSnapshot()))
	clk.Advance(90 * time.Minute)

	md := c.Metadata(ctx)
	assert.True(t, md.Exists)
	assert.Equal(t, Version, md.Version)
	assert.Equal(t, 2, md.Entities)
	assert.Equal(t, 90*time.Minute, md.Age)
}

type failingStore struct{ relational.EntryStore }

func (failingStore) Put(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestCache_SaveNeverFails(t *testing.T) {
	ctx := context.Background()

	c, err := New(failingStore{newRepo(t)})
	require.NoError(t, err)
	assert.False(t, c.Save(ctx, sampleSnapshot()))
	assert.False(t, c.Save(ctx, nil))
}

func TestCache_QuotaChecks(t *testing.T) {
	ctx := context.Background()

	small, err := New(newRepo(t), WithMaxBytes(64))
	require.NoError(t, err)
	assert.False(t, small.Save(ctx, sampleSnapshot()))

	lowDisk, err := New(newRepo(t), WithDiskQuota("/var/lib/orphan/cache.duckdb", 1<<20))
	require.NoError(t, err)
	lowDisk.diskFree = func(path string) (uint64, error) {
		assert.True(t, strings.HasSuffix(path, "orphan"))
		return 512, nil
	}
	assert.False(t, lowDisk.Save(ctx, sampleSnapshot()))

	unknown, err := New(newRepo(t), WithDiskQuota("/var/lib/orphan/cache.duckdb", 1<<20))
	require.NoError(t, err)
	unknown.diskFree = func(string) (uint64, error) { return 0, errors.New("statfs") }
	assert.True(t, unknown.Save(ctx, sampleSnapshot()))
}

func TestCache_InMemoryDSNSkipsDiskCheck(t *testing.T) {
	c, err := New(newRepo(t), WithDiskQuota(":memory:", 1<<40))
	require.NoError(t, err)
	assert.True(t, c.Save(context.Background(), sampleSnapshot()))
}
