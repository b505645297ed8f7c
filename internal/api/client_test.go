package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orphanfinder/internal/model"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", nil), &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestClient_StepZeroStartsSession(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIPath, r.URL.Path)
		assert.Equal(t, "entity_storage_overview_step", r.URL.Query().Get("action"))
		assert.Equal(t, "0", r.URL.Query().Get("step"))
		assert.Empty(t, r.URL.Query().Get("session_id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get(requestIDHeader))
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, `{"status":"initialized","total_steps":8,"session_id":"abc123"}`)
	})

	res, err := c.OverviewStep(context.Background(), 0, "")
	require.NoError(t, err)
	started, ok := res.(SessionStarted)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, "abc123", started.SessionID)
	assert.Equal(t, 8, started.TotalSteps)
}

func TestClient_IntermediateAndFinalSteps(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("session_id"))
		switch r.URL.Query().Get("step") {
		case "3":
			writeJSON(w, http.StatusOK, `{"status":"complete","entities_found":42}`)
		case "7":
			writeJSON(w, http.StatusOK, `{"status":"complete","deleted_storage_bytes":2048}`)
		case "8":
			writeJSON(w, http.StatusOK, `{"entities":[{"entity_id":"sensor.a","in_states_meta":true}],"summary":{"total_entities":1}}`)
		}
	})
	ctx := context.Background()

	res, err := c.OverviewStep(ctx, 3, "abc123")
	require.NoError(t, err)
	step := res.(StepCompleted)
	assert.Equal(t, 3, step.StepIndex())
	require.NotNil(t, step.EntitiesFound)
	assert.Equal(t, 42, *step.EntitiesFound)

	res, err = c.OverviewStep(ctx, 7, "abc123")
	require.NoError(t, err)
	require.NotNil(t, res.(StepCompleted).DeletedStorageBytes)
	assert.EqualValues(t, 2048, *res.(StepCompleted).DeletedStorageBytes)

	res, err = c.OverviewStep(ctx, 8, "abc123")
	require.NoError(t, err)
	ready := res.(OverviewReady)
	require.Len(t, ready.Entities, 1)
	assert.Equal(t, "sensor.a", ready.Entities[0].EntityID)
	assert.Equal(t, 1, ready.Summary.TotalEntities)
}

func TestClient_StepValidationSendsNoRequest(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx := context.Background()

	_, err := c.OverviewStep(ctx, 3, "")
	assert.ErrorIs(t, err, ErrMissingSession)

	_, err = c.OverviewStep(ctx, 9, "abc")
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = c.OverviewStep(ctx, -1, "")
	assert.ErrorIs(t, err, ErrInvalidStep)

	assert.EqualValues(t, 0, calls.Load())
}

func TestClient_SessionExpired(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"Invalid parameters provided"}`)
	})

	_, err := c.OverviewStep(context.Background(), 5, "stale")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 5, stepErr.Step)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Contains(t, UserMessage(err), "sessions expire after 5 minutes")
}

func TestClient_StepZeroBadRequestIsNotSessionExpiry(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"Invalid parameters provided"}`)
	})

	_, err := c.OverviewStep(context.Background(), 0, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
}

func TestClient_ServiceUnavailable(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":"Integration is reloading, please try again in a moment"}`)
	})

	_, err := c.DatabaseSize(context.Background())
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	assert.Contains(t, err.Error(), "reloading")
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "", nil, WithTimeout(time.Second))
	_, err := c.DatabaseSize(context.Background())
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	assert.Contains(t, UserMessage(err), "connection not available")
}

func TestClient_Unauthorized(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
	})

	_, err := c.DatabaseSize(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_DatabaseSize(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "database_size", r.URL.Query().Get("action"))
		writeJSON(w, http.StatusOK, `{"states":10,"statistics":5,"statistics_short_term":3,"other":1,
			"states_size":1000,"statistics_size":500,"statistics_short_term_size":300,"other_size":100}`)
	})

	size, err := c.DatabaseSize(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 10, size.States)
	assert.EqualValues(t, 1900, size.TotalBytes())
}

func TestClient_DeleteSQL(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "generate_delete_sql", q.Get("action"))
		assert.Equal(t, "sensor.old", q.Get("entity_id"))
		assert.Equal(t, "States+Statistics", q.Get("origin"))
		assert.Equal(t, "true", q.Get("in_states_meta"))
		assert.Equal(t, "false", q.Get("in_statistics_meta"))
		writeJSON(w, http.StatusOK, `{"sql":"BEGIN;\nDELETE FROM states;\nCOMMIT;","storage_saved":52428}`)
	})
	ctx := context.Background()

	res, err := c.DeleteSQL(ctx, DeleteSQLRequest{
		EntityID:     "sensor.old",
		Origin:       model.OriginStatesStatistics,
		InStatesMeta: true,
	})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "DELETE FROM states")
	assert.EqualValues(t, 52428, res.StorageSaved)

	_, err = c.DeleteSQL(ctx, DeleteSQLRequest{EntityID: "sensor.old", Origin: "Everything"})
	assert.ErrorIs(t, err, ErrInvalidOrigin)

	_, err = c.DeleteSQL(ctx, DeleteSQLRequest{EntityID: "sensor.old.extra", Origin: model.OriginStates})
	assert.ErrorIs(t, err, ErrInvalidEntityID)

	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_MessageHistogram(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48", r.URL.Query().Get("hours"))
		writeJSON(w, http.StatusOK, `{"hourly_counts":[1,2,3],"total_messages":6}`)
	})
	ctx := context.Background()

	h, err := c.MessageHistogram(ctx, "sensor.a", 48)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, h.HourlyCounts)
	assert.Equal(t, 6, h.TotalMessages)

	_, err = c.MessageHistogram(ctx, "sensor.a", 12)
	assert.ErrorIs(t, err, ErrInvalidHours)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.OverviewStep(ctx, 1, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConnectionUnavailable)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", &StepError{Step: 2, Err: context.DeadlineExceeded}, "did not answer in time"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.want)
		})
	}
}
