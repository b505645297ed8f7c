package query

import (
	"sync"

	"orphanfinder/internal/model"
)

// View is one evaluated result. Views are read-only; the engine hands out
// the same *View for repeated evaluations of identical inputs.
type View struct {
	Snapshot   *model.Snapshot
	State      State
	Records    []*model.EntityRecord
	Eligible   []*model.EntityRecord
	Generation uint64
}

// Len is safe on a nil view.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Records)
}

// EligibleIDs returns the ids of the eligible records in view order.
func (v *View) EligibleIDs() []string {
	if v == nil {
		return nil
	}
	ids := make([]string, len(v.Eligible))
	for i, e := range v.Eligible {
		ids[i] = e.EntityID
	}
	return ids
}

// Stats counts engine evaluations.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Engine memoizes the last evaluation. The key is the snapshot pointer plus
// the structural value of the State; any difference recomputes.
type Engine struct {
	mu         sync.Mutex
	last       *View
	generation uint64
	stats      Stats

	selectableFor *model.Snapshot
	selectable    []*model.EntityRecord
}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate returns the filtered and sorted view of snap under q.
func (e *Engine) Evaluate(snap *model.Snapshot, q State) *View {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.last != nil && e.last.Snapshot == snap && e.last.State.Equal(q) {
		e.stats.Hits++
		return e.last
	}
	e.stats.Misses++
	e.generation++

	var entities []model.EntityRecord
	if snap != nil {
		entities = snap.Entities
	}
	records := Filter(entities, q)
	Sort(records, q.Sort)

	eligible := make([]*model.EntityRecord, 0)
	for _, r := range records {
		if r.Eligible() {
			eligible = append(eligible, r)
		}
	}

	e.last = &View{
		Snapshot:   snap,
		State:      q.Clone(),
		Records:    records,
		Eligible:   eligible,
		Generation: e.generation,
	}
	return e.last
}

// Selectable returns every eligible record of snap regardless of filters.
// The result is cached per snapshot.
func (e *Engine) Selectable(snap *model.Snapshot) []*model.EntityRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap != nil && e.selectableFor == snap {
		return e.selectable
	}
	out := make([]*model.EntityRecord, 0)
	if snap != nil {
		for i := range snap.Entities {
			if snap.Entities[i].Eligible() {
				out = append(out, &snap.Entities[i])
			}
		}
	}
	e.selectableFor, e.selectable = snap, out
	return out
}

// Invalidate drops the memoized results.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = nil
	e.selectableFor, e.selectable = nil, nil
}

// Generation is the generation of the most recent recomputation.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
