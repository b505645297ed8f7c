package panel

import (
	"context"

	"orphanfinder/internal/model"
)

// Histogram is the message histogram of one entity.
type Histogram struct {
	Token    uint64
	EntityID string
	Hours    int
	Data     *model.MessageHistogram
	Err      error
}

// RequestHistogram issues a new histogram request token. Results carrying an
// older token are discarded by FetchHistogram.
func (c *Controller) RequestHistogram() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histToken++
	return c.histToken
}

// FetchHistogram loads the histogram for token. current is false when a newer
// request was issued in the meantime; the result is then dropped. hours <= 0
// uses the configured default.
func (c *Controller) FetchHistogram(ctx context.Context, token uint64, entityID string, hours int) (h Histogram, current bool) {
	if hours <= 0 {
		hours = c.histogramHours
	}
	h = Histogram{Token: token, EntityID: entityID, Hours: hours}
	if c.backend == nil {
		return h, false
	}
	h.Data, h.Err = c.backend.MessageHistogram(ctx, entityID, hours)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.histToken {
		return h, false
	}
	c.histogram = &h
	return h, true
}

// Histogram issues a token and fetches in one call.
func (c *Controller) Histogram(ctx context.Context, entityID string, hours int) (Histogram, bool) {
	return c.FetchHistogram(ctx, c.RequestHistogram(), entityID, hours)
}

// LastHistogram returns the most recent current histogram, if any.
func (c *Controller) LastHistogram() *Histogram {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.histogram
}
