// Package query derives filtered, sorted and selectable views of a snapshot.
package query

import (
	"slices"

	"orphanfinder/internal/model"
)

// BasicFilter is the mutually exclusive category filter.
type BasicFilter string

const (
	BasicNone                  BasicFilter = ""
	BasicInRegistry            BasicFilter = "in_registry"
	BasicInState               BasicFilter = "in_state"
	BasicDeleted               BasicFilter = "deleted"
	BasicNumericSensorsNoStats BasicFilter = "numeric_sensors_no_stats"
)

// AdvancedFilter narrows to entities stored in one subsystem only.
type AdvancedFilter string

const (
	AdvancedNone       AdvancedFilter = ""
	AdvancedOnlyStates AdvancedFilter = "only_states"
	AdvancedOnlyStats  AdvancedFilter = "only_stats"
)

// StatesFilter filters on presence in the states table.
type StatesFilter string

const (
	StatesNone  StatesFilter = ""
	StatesIn    StatesFilter = "in_states"
	StatesNotIn StatesFilter = "not_in_states"
)

// StatisticsFilter filters on presence in statistics_meta.
type StatisticsFilter string

const (
	StatisticsNone  StatisticsFilter = ""
	StatisticsIn    StatisticsFilter = "in_statistics"
	StatisticsNotIn StatisticsFilter = "not_in_statistics"
)

// FilterGroup names one independently toggled filter.
type FilterGroup string

const (
	GroupBasic      FilterGroup = "basic"
	GroupRegistry   FilterGroup = "registry"
	GroupState      FilterGroup = "state"
	GroupAdvanced   FilterGroup = "advanced"
	GroupStates     FilterGroup = "states"
	GroupStatistics FilterGroup = "statistics"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortKey is one entry of the sort stack.
type SortKey struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// DefaultSort is the stack restored by ClearSort.
func DefaultSort() []SortKey {
	return []SortKey{{Column: ColumnEntityID, Direction: Asc}}
}

// State is the full set of view parameters. States are values: every
// mutator returns a modified copy and leaves the receiver untouched.
type State struct {
	Search     string               `json:"search,omitempty"`
	Basic      BasicFilter          `json:"basic,omitempty"`
	Registry   model.RegistryStatus `json:"registry,omitempty"`
	State      model.StateStatus    `json:"state,omitempty"`
	Advanced   AdvancedFilter       `json:"advanced,omitempty"`
	States     StatesFilter         `json:"states,omitempty"`
	Statistics StatisticsFilter     `json:"statistics,omitempty"`
	Sort       []SortKey            `json:"sort,omitempty"`
}

// NewState returns an unfiltered state sorted by entity id.
func NewState() State {
	return State{Sort: DefaultSort()}
}

// Equal reports structural equality.
func (q State) Equal(o State) bool {
	return q.Search == o.Search &&
		q.Basic == o.Basic &&
		q.Registry == o.Registry &&
		q.State == o.State &&
		q.Advanced == o.Advanced &&
		q.States == o.States &&
		q.Statistics == o.Statistics &&
		slices.Equal(q.Sort, o.Sort)
}

// Clone returns a copy that shares nothing with q.
func (q State) Clone() State {
	q.Sort = slices.Clone(q.Sort)
	return q
}

// Filtered reports whether any filter or search text is active.
func (q State) Filtered() bool {
	return q.Search != "" || q.Basic != "" || q.Registry != "" || q.State != "" ||
		q.Advanced != "" || q.States != "" || q.Statistics != ""
}

// WithSearch sets the free-text search.
func (q State) WithSearch(text string) State {
	q = q.Clone()
	q.Search = text
	return q
}

// Toggle sets value on group, or clears the group when value is already active.
func (q State) Toggle(group FilterGroup, value string) State {
	if q.value(group) == value {
		value = ""
	}
	return q.Set(group, value)
}

// Set puts value on group regardless of its current value. An empty value
// clears the group.
func (q State) Set(group FilterGroup, value string) State {
	q = q.Clone()
	switch group {
	case GroupBasic:
		q.Basic = BasicFilter(value)
	case GroupRegistry:
		q.Registry = model.RegistryStatus(value)
	case GroupState:
		q.State = model.StateStatus(value)
	case GroupAdvanced:
		q.Advanced = AdvancedFilter(value)
	case GroupStates:
		q.States = StatesFilter(value)
	case GroupStatistics:
		q.Statistics = StatisticsFilter(value)
	}
	return q
}

func (q State) value(group FilterGroup) string {
	switch group {
	case GroupBasic:
		return string(q.Basic)
	case GroupRegistry:
		return string(q.Registry)
	case GroupState:
		return string(q.State)
	case GroupAdvanced:
		return string(q.Advanced)
	case GroupStates:
		return string(q.States)
	case GroupStatistics:
		return string(q.Statistics)
	}
	return ""
}

// ClearFilters resets the search text and every filter group.
func (q State) ClearFilters() State {
	return State{Sort: slices.Clone(q.Sort)}
}

// ClearSort restores the default sort stack.
func (q State) ClearSort() State {
	q = q.Clone()
	q.Sort = DefaultSort()
	return q
}

// ClickColumn applies a header click: the primary column toggles its
// direction, any other column replaces the stack ascending.
func (q State) ClickColumn(column string) State {
	q = q.Clone()
	if len(q.Sort) > 0 && q.Sort[0].Column == column {
		q.Sort[0].Direction = flip(q.Sort[0].Direction)
		return q
	}
	q.Sort = []SortKey{{Column: column, Direction: Asc}}
	return q
}

// ThenBy adds column as a tie breaker, or flips it when already stacked.
func (q State) ThenBy(column string) State {
	q = q.Clone()
	for i := range q.Sort {
		if q.Sort[i].Column == column {
			q.Sort[i].Direction = flip(q.Sort[i].Direction)
			return q
		}
	}
	q.Sort = append(q.Sort, SortKey{Column: column, Direction: Asc})
	return q
}

func flip(d Direction) Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Health actions that map onto filter presets.
const (
	ActionCleanupDeleted         = "cleanup_deleted"
	ActionInvestigateUnavailable = "investigate_unavailable"
	ActionReviewDisabled         = "review_disabled"
	ActionReviewNumericSensors   = "review_numeric_sensors"
	ActionOptimizeStorage        = "optimize_storage"
)

// ApplyHealthAction clears the category filters and applies the preset of
// action. Search text and sort are kept. ok is false for unknown actions, in
// which case the filters are still cleared.
func (q State) ApplyHealthAction(action string) (State, bool) {
	q = q.Clone()
	q.Basic, q.Registry, q.State, q.Advanced = "", "", "", ""

	switch action {
	case ActionCleanupDeleted:
		q.Basic = BasicDeleted
	case ActionInvestigateUnavailable:
		q.State = model.StateUnavailable
		q.Basic = BasicInState
	case ActionReviewDisabled:
		q.Registry = model.RegistryDisabled
		q.Basic = BasicInRegistry
	case ActionReviewNumericSensors:
		q.Basic = BasicNumericSensorsNoStats
	case ActionOptimizeStorage:
		q.Advanced = AdvancedOnlyStates
	default:
		return q, false
	}
	return q, true
}
