// Package source defines the calendar-source capability and its adapters.
// Each adapter translates one external provider's event shape into the
// shared model.CalendarEvent record; the aggregator consumes them through
// the one-method Source interface, so adding a provider never touches the
// aggregation logic.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taqwim/internal/model"
)

// Source lists events overlapping an aggregation window.
type Source interface {
	// Name is a short identifier for logging and status reporting.
	Name() string
	// Kind is the provenance tag stamped onto produced events.
	Kind() model.EventSource
	// Events returns the normalized events overlapping [start, end).
	Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
}

// ErrUnavailable marks a source that cannot be queried at all: access was
// denied, or a required account is not connected with the needed scope. The
// aggregator tolerates it as "this source contributed nothing".
var ErrUnavailable = errors.New("calendar source unavailable")

// ProviderError is a failure response from a provider that was reachable.
type ProviderError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: status %d: %s", e.Source, e.StatusCode, e.Message)
}

// DecodeError wraps a provider response that could not be parsed into the
// expected shape. It propagates exactly like a ProviderError.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode error: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// untitledEvent is the placeholder title for events whose provider omits one.
const untitledEvent = "Untitled Event"
