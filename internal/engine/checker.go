// Package engine turns an overview snapshot into prioritized storage health
// actions.
package engine

import (
	"fmt"
	"math"

	"orphanfinder/internal/flagger"
	"orphanfinder/internal/format"
	"orphanfinder/internal/model"
	"orphanfinder/internal/query"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"

	// Rough row sizes used when the backend did not report storage bytes.
	EstimatedStateRowBytes = 200
	EstimatedStatRowBytes  = 150
)

type CheckResult struct {
	Name   string
	Value  float64
	Status string
	Text   string
	// Action is the query preset the result links to, empty for none.
	Action string
	Button string
}

// Actionable reports whether the result links to a filter preset.
func (r CheckResult) Actionable() bool {
	return r.Action != ""
}

// storageMB prefers the reported byte count and falls back to an estimate.
func storageMB(reported int64, entities int) string {
	if reported > 0 {
		return format.MB(reported)
	}
	return format.MB(int64(entities) * (EstimatedStateRowBytes + EstimatedStatRowBytes))
}

// Evaluate returns the health actions for snap, most severe first. The last
// result is always the healthy-entity summary.
func Evaluate(snap *model.Snapshot, fs *flagger.FlaggerService) []CheckResult {
	var result []CheckResult
	if snap == nil {
		return result
	}
	if fs == nil {
		fs = flagger.NewFlaggerService(flagger.DefaultConfig())
	}
	sum := snap.Summary

	unavailableLong, numericMissing := 0, 0
	for i := range snap.Entities {
		e := &snap.Entities[i]
		if fs.UnavailableLong(e) {
			unavailableLong++
		}
		if flagger.NumericMissingStats(e) {
			numericMissing++
		}
	}

	// Deleted entities
	if n := sum.DeletedFromRegistry; n > 0 {
		result = append(result, CheckResult{
			Name:   "Deleted Entities",
			Value:  float64(n),
			Status: StatusCritical,
			Text:   fmt.Sprintf("%s deleted entities wasting %sMB", format.Number(int64(n)), storageMB(sum.DeletedStorageBytes, n)),
			Action: query.ActionCleanupDeleted,
			Button: "Clean up",
		})
	}

	// Unavailable past the threshold
	if unavailableLong > 0 {
		days := int(math.Round(fs.Config().UnavailableLong.Hours() / 24))
		result = append(result, CheckResult{
			Name:   "Long Unavailable",
			Value:  float64(unavailableLong),
			Status: StatusWarning,
			Text:   fmt.Sprintf("%s entities unavailable for %d+ days", format.Number(int64(unavailableLong)), days),
			Action: query.ActionInvestigateUnavailable,
			Button: "Investigate",
		})
	}

	// Disabled entities
	if n := sum.RegistryDisabled; n > 0 {
		result = append(result, CheckResult{
			Name:   "Disabled Entities",
			Value:  float64(n),
			Status: StatusWarning,
			Text:   fmt.Sprintf("%s disabled entities using %sMB", format.Number(int64(n)), storageMB(sum.DisabledStorageBytes, n)),
			Action: query.ActionReviewDisabled,
			Button: "Review",
		})
	}

	// Numeric sensors without statistics
	if numericMissing > 0 {
		result = append(result, CheckResult{
			Name:   "Numeric Sensors",
			Value:  float64(numericMissing),
			Status: StatusWarning,
			Text:   fmt.Sprintf("%s numeric sensors missing statistics", format.Number(int64(numericMissing))),
			Action: query.ActionReviewNumericSensors,
			Button: "Review",
		})
	}

	active, total := sum.StateAvailable, sum.TotalEntities
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(active) / float64(total) * 100))
	}
	result = append(result, CheckResult{
		Name:   "Active Entities",
		Value:  float64(active),
		Status: StatusHealthy,
		Text:   fmt.Sprintf("%s entities active and healthy (%d%%)", format.Number(int64(active)), pct),
	})

	return result
}

// AllHealthy reports whether only the healthy summary is present.
func AllHealthy(results []CheckResult) bool {
	return len(results) == 1 && results[0].Status == StatusHealthy
}

// Worst returns the most severe status in results.
func Worst(results []CheckResult) string {
	worst := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			return StatusCritical
		case StatusWarning:
			worst = StatusWarning
		}
	}
	return worst
}
