package api

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConnectionUnavailable means the backend host could not be reached or
	// reported itself unavailable.
	ErrConnectionUnavailable = errors.New("backend connection not available")
	// ErrUnauthorized means the access token was rejected.
	ErrUnauthorized = errors.New("backend rejected credentials")
	// ErrSessionExpired means the server-side overview session is gone.
	ErrSessionExpired = errors.New("overview session expired")
	// ErrInvalidStep is returned for a step outside [FirstStep, LastStep].
	ErrInvalidStep = errors.New("invalid step")
	// ErrMissingSession is returned for steps after 0 called without a session.
	ErrMissingSession = errors.New("session id required")
	// ErrInvalidHours is returned for histogram windows other than 24, 48 or 168.
	ErrInvalidHours = errors.New("invalid hours parameter")
	// ErrInvalidOrigin is returned for an unknown delete origin.
	ErrInvalidOrigin = errors.New("invalid origin")
	// ErrInvalidEntityID is returned for ids not shaped domain.object.
	ErrInvalidEntityID = errors.New("invalid entity id")
)

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Status   int
	Message  string
	Category string
	kind     error
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Unwrap exposes the classified sentinel, if any.
func (e *HTTPError) Unwrap() error {
	return e.kind
}

// StepError reports which step of the stepwise overview failed.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("fetch overview step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

const sessionExpiredMessage = "Your session has expired (sessions expire after 5 minutes of inactivity). " +
	"Please refresh to start a new data loading session."

// UserMessage turns an error from this package into operator-facing text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return sessionExpiredMessage
	case errors.Is(err, ErrConnectionUnavailable):
		return "Home Assistant connection not available. Check the backend URL and that Home Assistant is running."
	case errors.Is(err, ErrUnauthorized):
		return "The backend rejected the access token. Check backend.token."
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend did not answer in time. Please refresh to try again."
	default:
		return err.Error()
	}
}
