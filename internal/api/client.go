// Package api is the HTTP client for the statistics orphan finder backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
)

const (
	// APIPath is the backend endpoint all actions are sent to.
	APIPath = "/api/statistics_orphan_finder"

	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 64 << 20
	defaultTimeout  = 30 * time.Second
)

// Backend is the set of backend calls the panel needs.
type Backend interface {
	DatabaseSize(ctx context.Context) (*model.DatabaseSize, error)
	OverviewStep(ctx context.Context, step int, sessionID string) (StepResult, error)
	DeleteSQL(ctx context.Context, req DeleteSQLRequest) (*DeleteSQLResult, error)
	MessageHistogram(ctx context.Context, entityID string, hours int) (*model.MessageHistogram, error)
}

// DeleteSQLRequest is the input of a generate_delete_sql call.
type DeleteSQLRequest struct {
	EntityID         string
	Origin           model.Origin
	InStatesMeta     bool
	InStatisticsMeta bool
}

// DeleteSQLResult is the generated statement and the bytes it frees.
type DeleteSQLResult struct {
	SQL          string `json:"sql"`
	StorageSaved int64  `json:"storage_saved"`
}

// Client talks to the backend over HTTP with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logging.Logger
	requestID  func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL, token string, log logging.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logging.Discard()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With("adapter", "backend"),
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DatabaseSize returns the recorder database breakdown.
func (c *Client) DatabaseSize(ctx context.Context) (*model.DatabaseSize, error) {
	var out model.DatabaseSize
	body, err := c.get(ctx, url.Values{"action": {"database_size"}})
	if err != nil {
		return nil, fmt.Errorf("backend.DatabaseSize: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("backend.DatabaseSize: decode json: %w", err)
	}
	return &out, nil
}

// OverviewStep runs one step of the stepwise overview. Step 0 must be called
// without a session and returns SessionStarted; every later step needs the
// session id it returned. Failures are wrapped in *StepError.
func (c *Client) OverviewStep(ctx context.Context, step int, sessionID string) (StepResult, error) {
	if step < FirstStep || step > LastStep {
		return nil, &StepError{Step: step, Err: fmt.Errorf("%w: %d, must be between %d and %d", ErrInvalidStep, step, FirstStep, LastStep)}
	}
	if step > FirstStep && sessionID == "" {
		return nil, &StepError{Step: step, Err: fmt.Errorf("%w for step %d", ErrMissingSession, step)}
	}

	params := url.Values{
		"action": {"entity_storage_overview_step"},
		"step":   {strconv.Itoa(step)},
	}
	if sessionID != "" {
		params.Set("session_id", sessionID)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		if step > FirstStep && sessionID != "" && isSessionFailure(err) {
			err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, &StepError{Step: step, Err: err}
	}

	res, err := decodeStep(step, body)
	if err != nil {
		return nil, &StepError{Step: step, Err: err}
	}
	return res, nil
}

// DeleteSQL asks the backend for the delete statement of one entity.
func (c *Client) DeleteSQL(ctx context.Context, req DeleteSQLRequest) (*DeleteSQLResult, error) {
	if !validEntityID(req.EntityID) {
		return nil, fmt.Errorf("backend.DeleteSQL: %w: %q", ErrInvalidEntityID, req.EntityID)
	}
	if !req.Origin.Valid() {
		return nil, fmt.Errorf("backend.DeleteSQL: %w: %q", ErrInvalidOrigin, req.Origin)
	}

	params := url.Values{
		"action":             {"generate_delete_sql"},
		"entity_id":          {req.EntityID},
		"origin":             {string(req.Origin)},
		"in_states_meta":     {strconv.FormatBool(req.InStatesMeta)},
		"in_statistics_meta": {strconv.FormatBool(req.InStatisticsMeta)},
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("backend.DeleteSQL: %w", err)
	}

	var out DeleteSQLResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("backend.DeleteSQL: decode json: %w", err)
	}
	return &out, nil
}

// ValidHours reports whether hours is an accepted histogram window.
func ValidHours(hours int) bool {
	switch hours {
	case 24, 48, 168:
		return true
	}
	return false
}

// MessageHistogram returns hourly message counts for one entity.
func (c *Client) MessageHistogram(ctx context.Context, entityID string, hours int) (*model.MessageHistogram, error) {
	if !strings.Contains(entityID, ".") {
		return nil, fmt.Errorf("backend.MessageHistogram: %w: %q", ErrInvalidEntityID, entityID)
	}
	if !ValidHours(hours) {
		return nil, fmt.Errorf("backend.MessageHistogram: %w: %d, must be 24, 48 or 168", ErrInvalidHours, hours)
	}

	params := url.Values{
		"action":    {"entity_message_histogram"},
		"entity_id": {entityID},
		"hours":     {strconv.Itoa(hours)},
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("backend.MessageHistogram: %w", err)
	}

	var out model.MessageHistogram
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("backend.MessageHistogram: decode json: %w", err)
	}
	return &out, nil
}

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// get performs one GET against the backend and returns the raw body of a 2xx
// response. Non-2xx responses become *HTTPError.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + APIPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	id := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, id)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("http request: %w", ctxErr)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("http request: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.log.Debug(ctx, "backend request",
		"action", params.Get("action"),
		"status", resp.StatusCode,
		"request_id", id,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, body)
	}
	return body, nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	he := &HTTPError{Status: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		he.Message = eb.Error
		he.Category = eb.Category
	} else {
		he.Message = strings.TrimSpace(string(body))
	}
	switch status {
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		he.kind = ErrConnectionUnavailable
	case http.StatusUnauthorized, http.StatusForbidden:
		he.kind = ErrUnauthorized
	}
	return he
}

// isSessionFailure reports whether err is the backend rejecting a session id
// it no longer knows. An unknown session surfaces as a generic 400.
func isSessionFailure(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	switch he.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
	default:
		return false
	}
	if strings.EqualFold(he.Category, "SESSION_EXPIRED") {
		return true
	}
	msg := strings.ToLower(he.Message)
	return strings.Contains(msg, "session") || strings.Contains(msg, "invalid parameters")
}

func validEntityID(id string) bool {
	parts := strings.Split(id, ".")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
