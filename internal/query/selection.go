package query

import (
	"orphanfinder/internal/flagger"
	"orphanfinder/internal/model"
)

// SelectionSet is the set of entity ids marked for bulk action. It only ever
// holds ids of eligible records. A SelectionSet is not safe for concurrent
// use; its owner serializes access.
type SelectionSet struct {
	ids map[string]struct{}
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[string]struct{})}
}

func (s *SelectionSet) Len() int { return len(s.ids) }

func (s *SelectionSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Toggle flips id. Ids that are unknown to snap or not eligible are never
// added; removal is always allowed. It returns whether id is selected
// afterwards.
func (s *SelectionSet) Toggle(snap *model.Snapshot, id string) bool {
	if s.Contains(id) {
		delete(s.ids, id)
		return false
	}
	rec, ok := snap.Find(id)
	if !ok || !rec.Eligible() {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with the eligible records of v, that is
// the eligible records passing the current filters.
func (s *SelectionSet) SelectAll(v *View) {
	s.ids = make(map[string]struct{}, len(v.Eligible))
	for _, e := range v.Eligible {
		s.ids[e.EntityID] = struct{}{}
	}
}

func (s *SelectionSet) DeselectAll() {
	clear(s.ids)
}

// Prune drops ids that vanished from snap or are no longer eligible and
// returns how many were removed.
func (s *SelectionSet) Prune(snap *model.Snapshot) int {
	if len(s.ids) == 0 {
		return 0
	}
	if snap == nil {
		n := len(s.ids)
		clear(s.ids)
		return n
	}
	idx := snap.Index()
	removed := 0
	for id := range s.ids {
		i, ok := idx[id]
		if !ok || !snap.Entities[i].Eligible() {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}

// Records returns the selected records in snapshot order.
func (s *SelectionSet) Records(snap *model.Snapshot) []*model.EntityRecord {
	if snap == nil || len(s.ids) == 0 {
		return nil
	}
	out := make([]*model.EntityRecord, 0, len(s.ids))
	for i := range snap.Entities {
		if s.Contains(snap.Entities[i].EntityID) {
			out = append(out, &snap.Entities[i])
		}
	}
	return out
}

// IDs returns the selected ids in snapshot order.
func (s *SelectionSet) IDs(snap *model.Snapshot) []string {
	recs := s.Records(snap)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.EntityID
	}
	return ids
}

// Breakdown splits a selection into deleted and disabled records.
type Breakdown struct {
	Deleted  []*model.EntityRecord
	Disabled []*model.EntityRecord
}

func (b Breakdown) Counts() (deleted, disabled int) {
	return len(b.Deleted), len(b.Disabled)
}

// Breakdown classifies the selected records of snap.
func (s *SelectionSet) Breakdown(snap *model.Snapshot) Breakdown {
	var b Breakdown
	for _, r := range s.Records(snap) {
		switch flagger.Selection(r) {
		case flagger.SelectionDeleted:
			b.Deleted = append(b.Deleted, r)
		case flagger.SelectionDisabled:
			b.Disabled = append(b.Disabled, r)
		}
	}
	return b
}
