package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taqwim/internal/model"
)

// AuthorizationStatus is the permission state of the local device calendar.
type AuthorizationStatus int

const (
	AuthNotDetermined AuthorizationStatus = iota
	AuthAuthorized
	AuthDenied
	AuthRestricted
)

func (s AuthorizationStatus) String() string {
	switch s {
	case AuthNotDetermined:
		return "not_determined"
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	case AuthRestricted:
		return "restricted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// DeviceCalendar is the device-level event provider behind the local source.
type DeviceCalendar interface {
	ListByRange(start, end time.Time) ([]model.LocalEvent, error)
}

// GrantFunc answers an explicit access request. It stands in for the
// platform permission prompt: true means the user granted access.
type GrantFunc func(ctx context.Context) (bool, error)

// Local adapts the device calendar behind a permission state machine.
// The state only moves on an explicit RequestAccess call, never implicitly:
//
//	NotDetermined --RequestAccess/granted--> Authorized
//	NotDetermined --RequestAccess/refused--> Denied
//
// Restricted is terminal and set only at construction (parental controls
// and the like). While NotDetermined, Events yields an empty list; once
// Denied or Restricted it fails with ErrUnavailable.
type Local struct {
	provider DeviceCalendar
	grant    GrantFunc

	mu     sync.Mutex
	status AuthorizationStatus
}

// NewLocal creates the local source in the given initial state. grant may be
// nil, in which case RequestAccess always refuses.
func NewLocal(provider DeviceCalendar, initial AuthorizationStatus, grant GrantFunc) *Local {
	return &Local{
		provider: provider,
		grant:    grant,
		status:   initial,
	}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Kind() model.EventSource { return model.SourceLocal }

// Status returns the current authorization state.
func (l *Local) Status() AuthorizationStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// RequestAccess drives the one legal transition out of NotDetermined. Calling
// it in any other state is a no-op that reports the current state.
func (l *Local) RequestAccess(ctx context.Context) (AuthorizationStatus, error) {
	l.mu.Lock()
	if l.status != AuthNotDetermined {
		status := l.status
		l.mu.Unlock()
		return status, nil
	}
	grant := l.grant
	l.mu.Unlock()

	granted := false
	if grant != nil {
		var err error
		granted, err = grant(ctx)
		if err != nil {
			return AuthNotDetermined, fmt.Errorf("request calendar access: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == AuthNotDetermined {
		if granted {
			l.status = AuthAuthorized
		} else {
			l.status = AuthDenied
		}
	}
	return l.status, nil
}

// Events lists the device calendar's events overlapping [start, end).
func (l *Local) Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	switch l.Status() {
	case AuthAuthorized:
		// fall through to the provider query
	case AuthNotDetermined:
		// Access never asked for: contribute nothing rather than failing.
		return nil, nil
	default:
		return nil, fmt.Errorf("local calendar access %s: %w", l.Status(), ErrUnavailable)
	}

	rows, err := l.provider.ListByRange(start, end)
	if err != nil {
		return nil, &ProviderError{Source: l.Name(), Message: err.Error()}
	}

	events := make([]model.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		title := row.Title
		if title == "" {
			title = untitledEvent
		}
		events = append(events, model.CalendarEvent{
			Title:     title,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			AllDay:    row.AllDay,
			Location:  row.Location,
			Notes:     row.Notes,
			Source:    model.SourceLocal,
		})
	}
	return events, nil
}
