package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orphanfinder/internal/api"
	"orphanfinder/internal/flagger"
	"orphanfinder/internal/format"
	"orphanfinder/internal/model"
)

// BulkStatus summarizes a bulk SQL run.
type BulkStatus string

const (
	BulkSuccess BulkStatus = "success"
	BulkPartial BulkStatus = "partial"
	BulkError   BulkStatus = "error"
)

// ErrNotInAnyTable marks an entity without any metadata row.
var ErrNotInAnyTable = errors.New("entity not in any table")

// notInAnyTableText is the operator wording for ErrNotInAnyTable.
const notInAnyTableText = "Entity not in any table"

// EntitySQL is the outcome for one entity.
type EntitySQL struct {
	EntityID     string
	Origin       model.Origin
	Count        int64
	SQL          string
	StorageSaved int64
	Err          error
}

// OK reports whether SQL was generated.
func (e EntitySQL) OK() bool { return e.Err == nil }

// BulkResult collects the per-entity outcomes in request order.
type BulkResult struct {
	Status            BulkStatus
	Results           []EntitySQL
	SuccessCount      int
	ErrorCount        int
	TotalStorageSaved int64
}

// Combined renders every result as one SQL script. Failed entities become
// comment-only blocks.
func (r *BulkResult) Combined() string {
	blocks := make([]string, 0, len(r.Results))
	for _, e := range r.Results {
		if e.Err != nil {
			blocks = append(blocks, fmt.Sprintf("-- Entity: %s\n-- ERROR: %s\n", e.EntityID, errorText(e.Err)))
			continue
		}
		mb := float64(e.StorageSaved) / (1024 * 1024)
		blocks = append(blocks, fmt.Sprintf("-- Entity: %s (%s records, %.2f MB saved)\n%s", e.EntityID, format.Number(e.Count), mb, e.SQL))
	}
	return strings.Join(blocks, "\n\n")
}

// errorText strips wrapping prefixes the operator does not need.
func errorText(err error) string {
	if errors.Is(err, ErrNotInAnyTable) {
		return notInAnyTableText
	}
	var he *api.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return api.UserMessage(err)
}

// GenerateSQL requests delete SQL for ids one at a time, in snapshot order,
// and never aborts on a single failure. Empty ids means the current
// selection. progress receives (done, total) after each entity. When every
// entity succeeded the selection is cleared.
func (c *Controller) GenerateSQL(ctx context.Context, ids []string, progress func(done, total int)) (*BulkResult, error) {
	c.mu.RLock()
	snap := c.snap
	useSelection := len(ids) == 0
	if useSelection {
		ids = c.selection.IDs(snap)
	}
	c.mu.RUnlock()

	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	if c.backend == nil {
		return nil, api.ErrConnectionUnavailable
	}

	res := &BulkResult{Results: make([]EntitySQL, 0, len(ids))}
	for i, id := range ids {
		out := c.generateOne(ctx, snap, id)
		if out.Err != nil {
			res.ErrorCount++
			c.log.Warn(ctx, "delete sql failed", "entity_id", id, "error", out.Err)
		} else {
			res.SuccessCount++
			res.TotalStorageSaved += out.StorageSaved
		}
		res.Results = append(res.Results, out)
		if progress != nil {
			progress(i+1, len(ids))
		}
	}

	switch {
	case res.ErrorCount == 0:
		res.Status = BulkSuccess
	case res.SuccessCount == 0:
		res.Status = BulkError
	default:
		res.Status = BulkPartial
	}

	if res.Status == BulkSuccess && useSelection {
		c.DeselectAll()
	}
	c.log.Info(ctx, "bulk delete sql generated",
		"status", res.Status,
		"success", res.SuccessCount,
		"errors", res.ErrorCount,
	)
	return res, nil
}

func (c *Controller) generateOne(ctx context.Context, snap *model.Snapshot, id string) EntitySQL {
	out := EntitySQL{EntityID: id}
	rec, ok := snap.Find(id)
	if !ok {
		out.Err = fmt.Errorf("entity %s not in current overview", id)
		return out
	}
	origin, count, ok := flagger.OriginAndCount(rec)
	if !ok {
		out.Err = ErrNotInAnyTable
		return out
	}
	out.Origin, out.Count = origin, count

	sql, err := c.backend.DeleteSQL(ctx, api.DeleteSQLRequest{
		EntityID:         id,
		Origin:           origin,
		InStatesMeta:     rec.InStatesMeta,
		InStatisticsMeta: rec.InStatisticsMeta,
	})
	if err != nil {
		out.Err = err
		return out
	}
	out.SQL = sql.SQL
	out.StorageSaved = sql.StorageSaved
	return out
}
