package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orphanfinder/internal/model"
)

func ids(recs []*model.EntityRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.EntityID
	}
	return out
}

func active(id string) model.EntityRecord {
	return model.EntityRecord{
		EntityID: id, InRegistry: true, InStateMachine: true,
		RegistryStatus: model.RegistryEnabled, StateStatus: model.StateAvailable,
		InStatesMeta: true, InStates: true,
	}
}

func deleted(id string) model.EntityRecord {
	return model.EntityRecord{
		EntityID: id, RegistryStatus: model.RegistryNotInRegistry, StateStatus: model.StateNotPresent,
		InStatisticsMeta: true, InStatisticsLongTerm: true,
	}
}

func disabled(id string) model.EntityRecord {
	return model.EntityRecord{
		EntityID: id, InRegistry: true, RegistryStatus: model.RegistryDisabled,
		StateStatus: model.StateNotPresent, InStatesMeta: true,
	}
}

func snapshotOf(records ...model.EntityRecord) *model.Snapshot {
	return model.NewSnapshot(records, model.SummaryCounters{TotalEntities: len(records)}, nil, time.Time{})
}

// largeSnapshot has 1000 entities: 40 deleted with data, 10 disabled with
// data and 950 active ones.
func largeSnapshot() *model.Snapshot {
	var recs []model.EntityRecord
	for i := 0; i < 40; i++ {
		recs = append(recs, deleted(fmt.Sprintf("sensor.deleted_%02d", i)))
	}
	for i := 0; i < 10; i++ {
		recs = append(recs, disabled(fmt.Sprintf("light.disabled_%02d", i)))
	}
	for i := 0; i < 950; i++ {
		recs = append(recs, active(fmt.Sprintf("switch.active_%03d", i)))
	}
	return snapshotOf(recs...)
}

func TestEngine_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	snap := snapshotOf(active("sensor.kitchen_temp"), active("sensor.living_room"), active("binary_sensor.kitchen_door"))
	eng := NewEngine()

	v := eng.Evaluate(snap, NewState().WithSearch("sensor.kitchen"))
	assert.Equal(t, []string{"sensor.kitchen_temp"}, ids(v.Records))

	v = eng.Evaluate(snap, NewState().WithSearch("KITCHEN"))
	assert.Equal(t, []string{"binary_sensor.kitchen_door", "sensor.kitchen_temp"}, ids(v.Records))
}

func TestEngine_Memoization(t *testing.T) {
	snap := largeSnapshot()
	eng := NewEngine()
	q := NewState().Toggle(GroupBasic, string(BasicDeleted))

	first := eng.Evaluate(snap, q)
	second := eng.Evaluate(snap, q.Clone())
	assert.Same(t, first, second)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, eng.Stats())
	assert.EqualValues(t, 1, eng.Generation())

	changes := []State{
		q.WithSearch("x"),
		q.Toggle(GroupRegistry, string(model.RegistryDisabled)),
		q.Toggle(GroupState, string(model.StateUnavailable)),
		q.Toggle(GroupAdvanced, string(AdvancedOnlyStats)),
		q.Toggle(GroupStates, string(StatesIn)),
		q.Toggle(GroupStatistics, string(StatisticsNotIn)),
		q.Toggle(GroupBasic, string(BasicInRegistry)),
		q.ClickColumn(ColumnEntityID),
	}
	prev := second
	for i, c := range changes {
		v := eng.Evaluate(snap, c)
		assert.NotSame(t, prev, v, "change %d did not invalidate", i)
		prev = v
	}

	// A new snapshot with equal content is still a different input.
	other := model.NewSnapshot(snap.Entities, snap.Summary, nil, snap.CapturedAt)
	assert.NotSame(t, eng.Evaluate(snap, q), eng.Evaluate(other, q))
}

func TestEngine_FiltersAreConjunctive(t *testing.T) {
	unavailable := active("sensor.flaky")
	unavailable.StateStatus = model.StateUnavailable
	disabledUnavailable := disabled("sensor.off")
	disabledUnavailable.InStateMachine = true
	disabledUnavailable.StateStatus = model.StateUnavailable

	snap := snapshotOf(active("sensor.ok"), unavailable, disabledUnavailable, deleted("sensor.gone"))
	eng := NewEngine()

	q := NewState().
		Toggle(GroupState, string(model.StateUnavailable)).
		Toggle(GroupRegistry, string(model.RegistryDisabled))
	assert.Equal(t, []string{"sensor.off"}, ids(eng.Evaluate(snap, q).Records))

	q = q.Toggle(GroupBasic, string(BasicDeleted))
	assert.Empty(t, eng.Evaluate(snap, q).Records)
}

func TestEngine_BasicAndTableFilters(t *testing.T) {
	onlyStates := active("sensor.only_states")
	onlyStats := deleted("sensor.only_stats")
	numeric := active("sensor.power")
	numeric.StatisticsEligibilityReason = "missing state_class"
	nonNumeric := active("sensor.mode")
	nonNumeric.StatisticsEligibilityReason = "state is not numeric"

	snap := snapshotOf(onlyStates, onlyStats, numeric, nonNumeric)
	eng := NewEngine()

	tests := []struct {
		name string
		q    State
		want []string
	}{
		{"deleted", NewState().Toggle(GroupBasic, string(BasicDeleted)), []string{"sensor.only_stats"}},
		{"in registry", NewState().Toggle(GroupBasic, string(BasicInRegistry)), []string{"sensor.mode", "sensor.only_states", "sensor.power"}},
		{"numeric without stats", NewState().Toggle(GroupBasic, string(BasicNumericSensorsNoStats)), []string{"sensor.power"}},
		{"only stats", NewState().Toggle(GroupAdvanced, string(AdvancedOnlyStats)), []string{"sensor.only_stats"}},
		{"not in states", NewState().Toggle(GroupStates, string(StatesNotIn)), []string{"sensor.only_stats"}},
		{"in statistics", NewState().Toggle(GroupStatistics, string(StatisticsIn)), []string{"sensor.only_stats"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(eng.Evaluate(snap, tt.q).Records))
		})
	}
}

func TestEngine_EligibleFollowsFilters(t *testing.T) {
	snap := largeSnapshot()
	eng := NewEngine()

	all := eng.Evaluate(snap, NewState())
	assert.Len(t, all.Eligible, 50)
	assert.Len(t, eng.Selectable(snap), 50)

	lights := eng.Evaluate(snap, NewState().WithSearch("light."))
	assert.Len(t, lights.Eligible, 10)
	assert.Len(t, eng.Selectable(snap), 50)
}

func TestEngine_NilSnapshot(t *testing.T) {
	v := NewEngine().Evaluate(nil, NewState())
	require.NotNil(t, v)
	assert.Zero(t, v.Len())
	assert.Empty(t, v.EligibleIDs())
}
