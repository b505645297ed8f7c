package engine

import (
	"testing"
	"time"

	"orphanfinder/internal/flagger"
	"orphanfinder/internal/model"
	"orphanfinder/internal/query"
)

func f64(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		entities []model.EntityRecord
		summary  model.SummaryCounters
		expected map[string]string // Check Name -> Expected Text
	}{
		{
			name:    "All Healthy",
			summary: model.SummaryCounters{TotalEntities: 4, StateAvailable: 3},
			expected: map[string]string{
				"Active Entities": "3 entities active and healthy (75%)",
			},
		},
		{
			name:    "Deleted With Reported Bytes",
			summary: model.SummaryCounters{TotalEntities: 10, StateAvailable: 5, DeletedFromRegistry: 1200, DeletedStorageBytes: 50 * 1024 * 1024},
			expected: map[string]string{
				"Deleted Entities": "1,200 deleted entities wasting 50MB",
			},
		},
		{
			name:    "Deleted Estimated",
			summary: model.SummaryCounters{TotalEntities: 10, DeletedFromRegistry: 3000},
			expected: map[string]string{
				// 3000 * 350 B = 1.0 MB
				"Deleted Entities": "3,000 deleted entities wasting 1.0MB",
				"Active Entities":  "0 entities active and healthy (0%)",
			},
		},
		{
			name:    "Disabled",
			summary: model.SummaryCounters{TotalEntities: 10, RegistryDisabled: 2, DisabledStorageBytes: 512 * 1024},
			expected: map[string]string{
				"Disabled Entities": "2 disabled entities using 0.5MB",
			},
		},
		{
			name: "Entity Derived Checks",
			entities: []model.EntityRecord{
				{EntityID: "sensor.flaky", StateStatus: model.StateUnavailable, UnavailableDurationSeconds: f64(8 * 86400)},
				{EntityID: "sensor.recent", StateStatus: model.StateUnavailable, UnavailableDurationSeconds: f64(86400)},
				{EntityID: "sensor.power", InStatesMeta: true, StatisticsEligibilityReason: "no state_class"},
			},
			summary: model.SummaryCounters{TotalEntities: 3},
			expected: map[string]string{
				"Long Unavailable": "1 entities unavailable for 7+ days",
				"Numeric Sensors":  "1 numeric sensors missing statistics",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := model.NewSnapshot(tt.entities, tt.summary, nil, time.Time{})
			results := Evaluate(snap, nil)

			found := make(map[string]CheckResult)
			for _, r := range results {
				found[r.Name] = r
			}
			for name, text := range tt.expected {
				r, ok := found[name]
				if !ok {
					t.Errorf("Check %s not found in results", name)
					continue
				}
				if r.Text != text {
					t.Errorf("Check %s: expected %q, got %q", name, text, r.Text)
				}
			}

			last := results[len(results)-1]
			if last.Name != "Active Entities" || last.Status != StatusHealthy {
				t.Errorf("last result = %+v, want the healthy summary", last)
			}
		})
	}
}

func TestEvaluate_OrderAndActions(t *testing.T) {
	snap := model.NewSnapshot(
		[]model.EntityRecord{{EntityID: "sensor.power", InStatesMeta: true, StatisticsEligibilityReason: "no state_class"}},
		model.SummaryCounters{TotalEntities: 5, DeletedFromRegistry: 1, RegistryDisabled: 1},
		nil, time.Time{},
	)
	results := Evaluate(snap, flagger.NewFlaggerService(flagger.DefaultConfig()))

	want := []string{query.ActionCleanupDeleted, query.ActionReviewDisabled, query.ActionReviewNumericSensors, ""}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, action := range want {
		if results[i].Action != action {
			t.Errorf("results[%d].Action = %q, want %q", i, results[i].Action, action)
		}
	}
	if Worst(results) != StatusCritical {
		t.Errorf("Worst = %s, want %s", Worst(results), StatusCritical)
	}
	if AllHealthy(results) {
		t.Error("AllHealthy = true with pending actions")
	}
}

func TestEvaluate_NilSnapshot(t *testing.T) {
	if got := Evaluate(nil, nil); len(got) != 0 {
		t.Errorf("Evaluate(nil) = %v, want empty", got)
	}
}
