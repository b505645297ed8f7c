package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"orphanfinder/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestSort_StableOnDuplicateKeys(t *testing.T) {
	recs := []model.EntityRecord{
		{EntityID: "sensor.c", StatesCount: 5},
		{EntityID: "sensor.a", StatesCount: 1},
		{EntityID: "sensor.d", StatesCount: 5},
		{EntityID: "sensor.b", StatesCount: 1},
		{EntityID: "sensor.e", StatesCount: 5},
	}
	v := NewEngine().Evaluate(snapshotOf(recs...), State{Sort: []SortKey{{ColumnStatesCount, Asc}}})
	assert.Equal(t, []string{"sensor.a", "sensor.b", "sensor.c", "sensor.d", "sensor.e"}, ids(v.Records))

	v = NewEngine().Evaluate(snapshotOf(recs...), State{Sort: []SortKey{{ColumnStatesCount, Desc}}})
	assert.Equal(t, []string{"sensor.c", "sensor.d", "sensor.e", "sensor.a", "sensor.b"}, ids(v.Records))
}

func TestSort_StackFallsThrough(t *testing.T) {
	recs := []model.EntityRecord{
		{EntityID: "b.x", RegistryStatus: model.RegistryEnabled},
		{EntityID: "a.x", RegistryStatus: model.RegistryDisabled},
		{EntityID: "a.y", RegistryStatus: model.RegistryEnabled},
	}
	q := State{Sort: []SortKey{{ColumnRegistryStatus, Desc}, {ColumnEntityID, Asc}}}
	v := NewEngine().Evaluate(snapshotOf(recs...), q)
	assert.Equal(t, []string{"a.y", "b.x", "a.x"}, ids(v.Records))
}

func TestSort_ColumnSemantics(t *testing.T) {
	old := model.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	recent := model.NewTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	recs := []model.EntityRecord{
		{EntityID: "sensor.recent", LastStateUpdate: recent, UpdateIntervalSeconds: f64(30), InStates: true},
		{EntityID: "sensor.never", UpdateIntervalSeconds: nil},
		{EntityID: "sensor.old", LastStateUpdate: old, UpdateIntervalSeconds: f64(600), InStates: true},
	}
	snap := snapshotOf(recs...)

	tests := []struct {
		name string
		key  SortKey
		want []string
	}{
		{"missing timestamp first", SortKey{ColumnLastStateUpdate, Asc}, []string{"sensor.never", "sensor.old", "sensor.recent"}},
		{"missing interval last", SortKey{ColumnUpdateInterval, Asc}, []string{"sensor.recent", "sensor.old", "sensor.never"}},
		{"boolean true after false", SortKey{ColumnInStates, Asc}, []string{"sensor.never", "sensor.recent", "sensor.old"}},
		{"unknown column keeps order", SortKey{"no_such_column", Desc}, []string{"sensor.recent", "sensor.never", "sensor.old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewEngine().Evaluate(snap, State{Sort: []SortKey{tt.key}})
			assert.Equal(t, tt.want, ids(v.Records))
		})
	}
}

func TestSort_Collated(t *testing.T) {
	recs := []model.EntityRecord{{EntityID: "sensor.b"}, {EntityID: "Sensor.a"}, {EntityID: "sensor.c"}}
	v := NewEngine().Evaluate(snapshotOf(recs...), NewState())
	assert.Equal(t, []string{"Sensor.a", "sensor.b", "sensor.c"}, ids(v.Records))
}
