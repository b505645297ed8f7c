package query

import (
	"strings"

	"orphanfinder/internal/flagger"
	"orphanfinder/internal/model"
)

// predicate is one filter condition; a nil predicate is inactive.
type predicate func(*model.EntityRecord) bool

// predicates returns the active filters of q. A record passes when every
// returned predicate holds.
func predicates(q State) []predicate {
	var ps []predicate

	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		ps = append(ps, func(e *model.EntityRecord) bool {
			return strings.Contains(strings.ToLower(e.EntityID), needle)
		})
	}
	if p := basicPredicate(q.Basic); p != nil {
		ps = append(ps, p)
	}
	if q.Registry != "" {
		want := q.Registry
		ps = append(ps, func(e *model.EntityRecord) bool { return e.RegistryStatus == want })
	}
	if q.State != "" {
		want := q.State
		ps = append(ps, func(e *model.EntityRecord) bool { return e.StateStatus == want })
	}
	switch q.Advanced {
	case AdvancedOnlyStates:
		ps = append(ps, func(e *model.EntityRecord) bool { return e.InStates && !e.InStatisticsMeta })
	case AdvancedOnlyStats:
		ps = append(ps, func(e *model.EntityRecord) bool { return e.InStatisticsMeta && !e.InStates })
	}
	switch q.States {
	case StatesIn:
		ps = append(ps, func(e *model.EntityRecord) bool { return e.InStates })
	case StatesNotIn:
		ps = append(ps, func(e *model.EntityRecord) bool { return !e.InStates })
	}
	switch q.Statistics {
	case StatisticsIn:
		ps = append(ps, func(e *model.EntityRecord) bool { return e.InStatisticsMeta })
	case StatisticsNotIn:
		ps = append(ps, func(e *model.EntityRecord) bool { return !e.InStatisticsMeta })
	}
	return ps
}

func basicPredicate(b BasicFilter) predicate {
	switch b {
	case BasicInRegistry:
		return func(e *model.EntityRecord) bool { return e.InRegistry }
	case BasicInState:
		return func(e *model.EntityRecord) bool { return e.InStateMachine }
	case BasicDeleted:
		return (*model.EntityRecord).IsDeleted
	case BasicNumericSensorsNoStats:
		return flagger.NumericMissingStats
	}
	return nil
}

// Matches reports whether e passes every active filter of q.
func Matches(e *model.EntityRecord, q State) bool {
	for _, p := range predicates(q) {
		if !p(e) {
			return false
		}
	}
	return true
}

// Filter returns pointers to the records of entities that pass q, in input order.
func Filter(entities []model.EntityRecord, q State) []*model.EntityRecord {
	ps := predicates(q)
	out := make([]*model.EntityRecord, 0, len(entities))
next:
	for i := range entities {
		e := &entities[i]
		for _, p := range ps {
			if !p(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}
