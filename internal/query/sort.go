package query

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"orphanfinder/internal/model"
)

// Sortable columns.
const (
	ColumnEntityID         = "entity_id"
	ColumnRegistryStatus   = "registry_status"
	ColumnStateStatus      = "state_status"
	ColumnStatesCount      = "states_count"
	ColumnStatsShortCount  = "stats_short_count"
	ColumnStatsLongCount   = "stats_long_count"
	ColumnUpdateInterval   = "update_interval"
	ColumnLastStateUpdate  = "last_state_update"
	ColumnLastStatsUpdate  = "last_stats_update"
	ColumnInRegistry       = "in_entity_registry"
	ColumnInStateMachine   = "in_state_machine"
	ColumnInStatesMeta     = "in_states_meta"
	ColumnInStates         = "in_states"
	ColumnInStatisticsMeta = "in_statistics_meta"
	ColumnInShortTerm      = "in_statistics_short_term"
	ColumnInLongTerm       = "in_statistics_long_term"
)

// missingInterval sorts records without a known update interval last.
const missingInterval = 999999

// SortLocale is the collation used for string columns.
var SortLocale = language.English

// comparator orders two records on one column, ascending.
type comparator func(a, b *model.EntityRecord) int

func columnComparator(column string, col *collate.Collator) comparator {
	switch column {
	case ColumnEntityID:
		return func(a, b *model.EntityRecord) int { return col.CompareString(a.EntityID, b.EntityID) }
	case ColumnRegistryStatus, "registry":
		return func(a, b *model.EntityRecord) int {
			return col.CompareString(string(a.RegistryStatus), string(b.RegistryStatus))
		}
	case ColumnStateStatus, "state":
		return func(a, b *model.EntityRecord) int {
			return col.CompareString(string(a.StateStatus), string(b.StateStatus))
		}
	case ColumnStatesCount:
		return func(a, b *model.EntityRecord) int { return cmp.Compare(a.StatesCount, b.StatesCount) }
	case ColumnStatsShortCount:
		return func(a, b *model.EntityRecord) int { return cmp.Compare(a.StatsShortCount, b.StatsShortCount) }
	case ColumnStatsLongCount:
		return func(a, b *model.EntityRecord) int { return cmp.Compare(a.StatsLongCount, b.StatsLongCount) }
	case ColumnUpdateInterval:
		return func(a, b *model.EntityRecord) int {
			return cmp.Compare(intervalOrMissing(a), intervalOrMissing(b))
		}
	case ColumnLastStateUpdate:
		return func(a, b *model.EntityRecord) int {
			return cmp.Compare(a.LastStateUpdate.UnixMilliOrZero(), b.LastStateUpdate.UnixMilliOrZero())
		}
	case ColumnLastStatsUpdate:
		return func(a, b *model.EntityRecord) int {
			return cmp.Compare(a.LastStatsUpdate.UnixMilliOrZero(), b.LastStatsUpdate.UnixMilliOrZero())
		}
	}
	field := boolColumn(column)
	return func(a, b *model.EntityRecord) int { return cmp.Compare(b2i(field(a)), b2i(field(b))) }
}

func intervalOrMissing(e *model.EntityRecord) float64 {
	if e.UpdateIntervalSeconds == nil {
		return missingInterval
	}
	return *e.UpdateIntervalSeconds
}

// boolColumn returns the flag read by column. Unknown columns read false for
// every record, leaving the order to the next key.
func boolColumn(column string) func(*model.EntityRecord) bool {
	switch column {
	case ColumnInRegistry:
		return func(e *model.EntityRecord) bool { return e.InRegistry }
	case ColumnInStateMachine:
		return func(e *model.EntityRecord) bool { return e.InStateMachine }
	case ColumnInStatesMeta:
		return func(e *model.EntityRecord) bool { return e.InStatesMeta }
	case ColumnInStates:
		return func(e *model.EntityRecord) bool { return e.InStates }
	case ColumnInStatisticsMeta:
		return func(e *model.EntityRecord) bool { return e.InStatisticsMeta }
	case ColumnInShortTerm:
		return func(e *model.EntityRecord) bool { return e.InStatisticsShortTerm }
	case ColumnInLongTerm:
		return func(e *model.EntityRecord) bool { return e.InStatisticsLongTerm }
	case "device_disabled":
		return func(e *model.EntityRecord) bool { return e.DeviceDisabled }
	}
	return func(*model.EntityRecord) bool { return false }
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Sort orders records in place by the stack. The sort is stable: records
// equal on every key keep their relative order.
func Sort(records []*model.EntityRecord, stack []SortKey) {
	if len(stack) == 0 || len(records) < 2 {
		return
	}
	// A collator carries internal buffers and is not safe for concurrent use.
	col := collate.New(SortLocale)
	cmps := make([]comparator, len(stack))
	for i, k := range stack {
		cmps[i] = columnComparator(k.Column, col)
	}

	slices.SortStableFunc(records, func(a, b *model.EntityRecord) int {
		for i, c := range cmps {
			r := c(a, b)
			if stack[i].Direction == Desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	})
}
