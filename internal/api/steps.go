package api

import (
	"encoding/json"
	"fmt"

	"orphanfinder/internal/model"
)

const (
	// FirstStep creates the session.
	FirstStep = 0
	// LastStep returns the full overview.
	LastStep = 8
	// TotalSteps is the number of steps after session creation.
	TotalSteps = LastStep
)

// StepResult is the decoded payload of one overview step. The concrete type
// depends on the step index: SessionStarted for 0, StepCompleted for 1..7 and
// OverviewReady for 8.
type StepResult interface {
	StepIndex() int
	isStepResult()
}

// SessionStarted is the step 0 payload.
type SessionStarted struct {
	SessionID  string
	TotalSteps int
}

// StepCompleted is the progress payload of an intermediate step.
type StepCompleted struct {
	Step                int
	Status              string
	EntitiesFound       *int
	TotalEntities       *int
	DeletedStorageBytes *int64
}

// OverviewReady is the final payload.
type OverviewReady struct {
	Entities []model.EntityRecord
	Summary  model.SummaryCounters
}

func (SessionStarted) StepIndex() int { return FirstStep }
func (s StepCompleted) StepIndex() int { return s.Step }
func (OverviewReady) StepIndex() int { return LastStep }
func (SessionStarted) isStepResult() {}
func (StepCompleted) isStepResult() {}
func (OverviewReady) isStepResult() {}

type sessionStartedWire struct {
	Status     string `json:"status"`
	SessionID  string `json:"session_id"`
	TotalSteps int    `json:"total_steps"`
}

type stepCompletedWire struct {
	Status              string `json:"status"`
	EntitiesFound       *int   `json:"entities_found"`
	TotalEntities       *int   `json:"total_entities"`
	DeletedStorageBytes *int64 `json:"deleted_storage_bytes"`
}

type overviewReadyWire struct {
	Entities []model.EntityRecord  `json:"entities"`
	Summary  model.SummaryCounters `json:"summary"`
}

// decodeStep decodes body according to step.
func decodeStep(step int, body []byte) (StepResult, error) {
	switch {
	case step == FirstStep:
		var w sessionStartedWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if w.SessionID == "" {
			return nil, fmt.Errorf("step 0 returned no session_id")
		}
		if w.TotalSteps == 0 {
			w.TotalSteps = TotalSteps
		}
		return SessionStarted{SessionID: w.SessionID, TotalSteps: w.TotalSteps}, nil

	case step == LastStep:
		var w overviewReadyWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if w.Entities == nil {
			return nil, fmt.Errorf("step %d returned no entities", step)
		}
		return OverviewReady{Entities: w.Entities, Summary: w.Summary}, nil

	default:
		var w stepCompletedWire
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return StepCompleted{
			Step:                step,
			Status:              w.Status,
			EntitiesFound:       w.EntitiesFound,
			TotalEntities:       w.TotalEntities,
			DeletedStorageBytes: w.DeletedStorageBytes,
		}, nil
	}
}
