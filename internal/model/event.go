package model

import "time"

// EventSource identifies which calendar adapter produced an event.
type EventSource string

const (
	SourceLocal  EventSource = "local"
	SourceGoogle EventSource = "google"
	SourceICS    EventSource = "ics"
)

// DisplayName returns the user-facing name of the source.
func (s EventSource) DisplayName() string {
	switch s {
	case SourceLocal:
		return "Local Calendar"
	case SourceGoogle:
		return "Google Calendar"
	case SourceICS:
		return "ICS Subscription"
	default:
		return string(s)
	}
}

// rank orders sources for deterministic tie-breaking in merged results.
func (s EventSource) rank() int {
	switch s {
	case SourceLocal:
		return 0
	case SourceGoogle:
		return 1
	case SourceICS:
		return 2
	default:
		return 3
	}
}

// CalendarEvent is the normalized event record shared by every source.
// Instances are constructed fresh on each aggregation and never mutated.
// The ID is unique within a single aggregation result only; the calendar
// providers remain the source of truth.
type CalendarEvent struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	AllDay    bool        `json:"all_day"`
	Location  string      `json:"location,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	URL       string      `json:"url,omitempty"`
	Source    EventSource `json:"source"`
}

// Before reports whether e sorts ahead of other in a merged result:
// ascending start time, ties broken by source rank, then title.
func (e CalendarEvent) Before(other CalendarEvent) bool {
	if !e.StartTime.Equal(other.StartTime) {
		return e.StartTime.Before(other.StartTime)
	}
	if e.Source.rank() != other.Source.rank() {
		return e.Source.rank() < other.Source.rank()
	}
	return e.Title < other.Title
}
