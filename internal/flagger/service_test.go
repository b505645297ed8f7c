package flagger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orphanfinder/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestSelection(t *testing.T) {
	tests := []struct {
		name string
		e    model.EntityRecord
		want SelectionType
	}{
		{"no data", model.EntityRecord{}, SelectionNotSelectable},
		{"deleted with states", model.EntityRecord{InStatesMeta: true}, SelectionDeleted},
		{"deleted and disabled", model.EntityRecord{InStatisticsMeta: true, RegistryStatus: model.RegistryDisabled}, SelectionDeleted},
		{"disabled with data", model.EntityRecord{InRegistry: true, RegistryStatus: model.RegistryDisabled, InStatisticsMeta: true}, SelectionDisabled},
		{"active", model.EntityRecord{InRegistry: true, InStateMachine: true, RegistryStatus: model.RegistryEnabled, InStatesMeta: true}, SelectionNotSelectable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Selection(&tt.e))
		})
	}
}

func TestOriginAndCount(t *testing.T) {
	tests := []struct {
		name   string
		e      model.EntityRecord
		origin model.Origin
		count  int64
		ok     bool
	}{
		{"states and statistics",
			model.EntityRecord{InStatesMeta: true, InStatisticsMeta: true, StatesCount: 10, StatsShortCount: 3, StatsLongCount: 2},
			model.OriginStatesStatistics, 15, true},
		{"states only", model.EntityRecord{InStatesMeta: true, StatesCount: 7, StatsLongCount: 99}, model.OriginStates, 7, true},
		{"both statistics tables",
			model.EntityRecord{InStatisticsMeta: true, InStatisticsShortTerm: true, InStatisticsLongTerm: true, StatsShortCount: 1, StatsLongCount: 4},
			model.OriginBoth, 5, true},
		{"long term", model.EntityRecord{InStatisticsMeta: true, InStatisticsLongTerm: true, StatsLongCount: 4}, model.OriginLongTerm, 4, true},
		{"short term", model.EntityRecord{InStatisticsMeta: true, StatsShortCount: 2}, model.OriginShortTerm, 2, true},
		{"nowhere", model.EntityRecord{}, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, count, ok := OriginAndCount(&tt.e)
			assert.Equal(t, tt.origin, origin)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNumericMissingStats(t *testing.T) {
	base := model.EntityRecord{EntityID: "sensor.power", InStatesMeta: true, StatisticsEligibilityReason: "missing state_class"}
	assert.True(t, NumericMissingStats(&base))

	nonNumeric := base
	nonNumeric.StatisticsEligibilityReason = "state value is not numeric"
	assert.False(t, NumericMissingStats(&nonNumeric))

	noReason := base
	noReason.StatisticsEligibilityReason = ""
	assert.False(t, NumericMissingStats(&noReason))

	hasStats := base
	hasStats.InStatisticsMeta = true
	assert.False(t, NumericMissingStats(&hasStats))

	binary := base
	binary.EntityID = "binary_sensor.door"
	assert.False(t, NumericMissingStats(&binary))
}

func TestFlaggerService_Flag(t *testing.T) {
	fs := NewFlaggerService(DefaultConfig())

	t.Run("deleted entity", func(t *testing.T) {
		e := model.EntityRecord{EntityID: "sensor.gone", InStatesMeta: true, StatesCount: 10}
		f := fs.Flag(&e)
		assert.Equal(t, SelectionDeleted, f.Selection)
		assert.Equal(t, model.OriginStates, f.Origin)
		assert.Equal(t, 3, f.SeverityLevel)
		assert.EqualValues(t, 1000, f.EstimatedBytes)
		assert.Equal(t, "deleted entity still has stored data", f.Explanation)
	})

	t.Run("long unavailable numeric sensor", func(t *testing.T) {
		e := model.EntityRecord{
			EntityID: "sensor.flaky", InRegistry: true, InStateMachine: true,
			StateStatus: model.StateUnavailable, UnavailableDurationSeconds: f64(8 * 86400),
			InStatesMeta: true, StatisticsEligibilityReason: "no state_class",
			StatesCount: 2, StatsLongCount: 4,
		}
		f := fs.Flag(&e)
		assert.True(t, f.UnavailableLong)
		assert.True(t, f.NumericMissingStats)
		assert.Equal(t, 2, f.SeverityLevel)
		assert.Equal(t, "unavailable for 8 days (+1 more)", f.Explanation)
		assert.EqualValues(t, 400, f.EstimatedBytes)
	})

	t.Run("unavailable below threshold", func(t *testing.T) {
		e := model.EntityRecord{StateStatus: model.StateUnavailable, UnavailableDurationSeconds: f64(3600)}
		assert.False(t, fs.Flag(&e).UnavailableLong)
	})

	t.Run("healthy", func(t *testing.T) {
		e := model.EntityRecord{EntityID: "light.desk", InRegistry: true, InStateMachine: true, StateStatus: model.StateAvailable}
		f := fs.Flag(&e)
		assert.Equal(t, 0, f.SeverityLevel)
		assert.Empty(t, f.Explanation)
	})
}
