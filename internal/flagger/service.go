// Package flagger classifies single entity records: whether they can be
// selected for deletion, which tables a delete targets, and which health
// conditions they trip.
package flagger

import (
	"fmt"
	"strings"

	"orphanfinder/internal/model"
)

// SelectionType tells how an entity participates in bulk deletion.
type SelectionType string

const (
	SelectionDeleted       SelectionType = "deleted"
	SelectionDisabled      SelectionType = "disabled"
	SelectionNotSelectable SelectionType = "not-selectable"
)

// Selection returns the selection type of e. Deleted wins over disabled.
func Selection(e *model.EntityRecord) SelectionType {
	if !e.HasData() {
		return SelectionNotSelectable
	}
	if e.IsDeleted() {
		return SelectionDeleted
	}
	if e.IsDisabledWithData() {
		return SelectionDisabled
	}
	return SelectionNotSelectable
}

// OriginAndCount returns the delete origin of e and the number of rows a
// delete would remove. ok is false when e is in no metadata table.
func OriginAndCount(e *model.EntityRecord) (origin model.Origin, count int64, ok bool) {
	switch {
	case e.InStatesMeta && e.InStatisticsMeta:
		return model.OriginStatesStatistics, e.StatesCount + e.StatsShortCount + e.StatsLongCount, true
	case e.InStatesMeta:
		return model.OriginStates, e.StatesCount, true
	case e.InStatisticsMeta:
		origin = model.OriginShortTerm
		if e.InStatisticsLongTerm && e.InStatisticsShortTerm {
			origin = model.OriginBoth
		} else if e.InStatisticsLongTerm {
			origin = model.OriginLongTerm
		}
		return origin, e.StatsShortCount + e.StatsLongCount, true
	}
	return "", 0, false
}

// NumericMissingStats reports a sensor that records states but no
// statistics although its values are numeric.
func NumericMissingStats(e *model.EntityRecord) bool {
	return strings.HasPrefix(e.EntityID, "sensor.") &&
		e.InStatesMeta &&
		!e.InStatisticsMeta &&
		e.StatisticsEligibilityReason != "" &&
		!strings.Contains(e.StatisticsEligibilityReason, "is not numeric")
}

// EntityFlags is the classification of one record.
type EntityFlags struct {
	Selection           SelectionType
	Origin              model.Origin
	RecordCount         int64
	UnavailableLong     bool
	NumericMissingStats bool
	EstimatedBytes      int64
	SeverityLevel       int // 0=ok, 2=warn, 3=crit
	Explanation         string
}

// FlaggerService applies the configured thresholds to records.
type FlaggerService struct {
	cfg Config
}

func NewFlaggerService(cfg Config) *FlaggerService {
	return &FlaggerService{cfg: cfg}
}

// Config returns the thresholds in use.
func (fs *FlaggerService) Config() Config {
	return fs.cfg
}

// UnavailableLong reports whether e has been unavailable past the threshold.
func (fs *FlaggerService) UnavailableLong(e *model.EntityRecord) bool {
	return e.StateStatus == model.StateUnavailable &&
		e.UnavailableDurationSeconds != nil &&
		*e.UnavailableDurationSeconds > fs.cfg.UnavailableLong.Seconds()
}

// EstimatedBytes approximates the storage held by e.
func (fs *FlaggerService) EstimatedBytes(e *model.EntityRecord) int64 {
	return e.StatesCount*fs.cfg.BytesPerState + (e.StatsShortCount+e.StatsLongCount)*fs.cfg.BytesPerStat
}

func (fs *FlaggerService) Flag(e *model.EntityRecord) *EntityFlags {
	f := &EntityFlags{Selection: Selection(e)}
	var explanations []string

	// 1. Deletion candidates
	switch f.Selection {
	case SelectionDeleted:
		f.SeverityLevel = 3
		explanations = append(explanations, "deleted entity still has stored data")
	case SelectionDisabled:
		f.SeverityLevel = 2
		explanations = append(explanations, "disabled entity still has stored data")
	}

	// 2. Delete target
	f.Origin, f.RecordCount, _ = OriginAndCount(e)

	// 3. Long unavailable
	if fs.UnavailableLong(e) {
		f.UnavailableLong = true
		f.SeverityLevel = max(f.SeverityLevel, 2)
		explanations = append(explanations, fmt.Sprintf("unavailable for %.0f days", *e.UnavailableDurationSeconds/86400))
	}

	// 4. Numeric sensor without statistics
	if NumericMissingStats(e) {
		f.NumericMissingStats = true
		f.SeverityLevel = max(f.SeverityLevel, 2)
		explanations = append(explanations, "numeric sensor missing statistics")
	}

	f.EstimatedBytes = fs.EstimatedBytes(e)

	if len(explanations) > 0 {
		f.Explanation = explanations[0]
		if len(explanations) > 1 {
			f.Explanation += fmt.Sprintf(" (+%d more)", len(explanations)-1)
		}
	}
	return f
}
