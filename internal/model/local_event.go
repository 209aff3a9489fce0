package model

import "time"

// LocalEvent is a row in the daemon's own calendar, the backing provider for
// the local event source. Unlike CalendarEvent it is persisted and has a
// stable identity.
type LocalEvent struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	AllDay    bool      `json:"all_day"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
