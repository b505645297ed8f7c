package panel

import (
	"orphanfinder/internal/query"
)

// updateQuery applies fn to the query state under the lock.
func (c *Controller) updateQuery(fn func(query.State) query.State) query.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = fn(c.query)
	return c.query.Clone()
}

func (c *Controller) SetQuery(q query.State) query.State {
	return c.updateQuery(func(query.State) query.State { return q.Clone() })
}

func (c *Controller) SetSearch(text string) query.State {
	return c.updateQuery(func(q query.State) query.State { return q.WithSearch(text) })
}

func (c *Controller) ToggleFilter(group query.FilterGroup, value string) query.State {
	return c.updateQuery(func(q query.State) query.State { return q.Toggle(group, value) })
}

func (c *Controller) ClearFilters() query.State {
	return c.updateQuery(query.State.ClearFilters)
}

func (c *Controller) ClickColumn(column string) query.State {
	return c.updateQuery(func(q query.State) query.State { return q.ClickColumn(column) })
}

func (c *Controller) ThenBy(column string) query.State {
	return c.updateQuery(func(q query.State) query.State { return q.ThenBy(column) })
}

func (c *Controller) ClearSort() query.State {
	return c.updateQuery(query.State.ClearSort)
}

// ApplyHealthAction switches the filters to the preset of a health action.
func (c *Controller) ApplyHealthAction(action string) (query.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.query.ApplyHealthAction(action)
	c.query = q
	return q.Clone(), ok
}

// ToggleSelection flips one entity; ineligible ids are never selected.
func (c *Controller) ToggleSelection(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Toggle(c.snap, id)
}

// SelectAll selects the eligible records passing the current filters.
func (c *Controller) SelectAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.SelectAll(c.engine.Evaluate(c.snap, c.query))
	return c.selection.Len()
}

func (c *Controller) DeselectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.DeselectAll()
}

func (c *Controller) IsSelected(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection.Contains(id)
}

// SelectedIDs returns the selection in snapshot order.
func (c *Controller) SelectedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection.IDs(c.snap)
}
