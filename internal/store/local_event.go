package store

import (
	"database/sql"
	"fmt"
	"time"

	"taqwim/internal/model"
)

// LocalEventStore is the daemon's own calendar table, queried by the local
// event source and written through the REST API.
type LocalEventStore struct {
	db *sql.DB
}

func NewLocalEventStore(db *sql.DB) *LocalEventStore {
	return &LocalEventStore{db: db}
}

func (s *LocalEventStore) Create(title, notes string, startTime, endTime time.Time, allDay bool, location string) (*model.LocalEvent, error) {
	var allDayInt int
	if allDay {
		allDayInt = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO local_events (title, notes, start_time, end_time, all_day, location)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, notes, startTime.UTC(), endTime.UTC(), allDayInt, location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert local event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *LocalEventStore) GetByID(id int64) (*model.LocalEvent, error) {
	var e model.LocalEvent
	var allDayInt int

	err := s.db.QueryRow(
		`SELECT id, title, notes, start_time, end_time, all_day, location, created_at, updated_at
		 FROM local_events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Title, &e.Notes, &e.StartTime, &e.EndTime, &allDayInt, &e.Location, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query local event: %w", err)
	}

	e.AllDay = allDayInt != 0
	return &e, nil
}

// ListByRange returns events overlapping [start, end), ordered by start time.
func (s *LocalEventStore) ListByRange(start, end time.Time) ([]model.LocalEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, title, notes, start_time, end_time, all_day, location, created_at, updated_at
		 FROM local_events
		 WHERE start_time < ? AND end_time > ?
		 ORDER BY start_time ASC, id ASC`,
		end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query local events: %w", err)
	}
	defer rows.Close()

	var events []model.LocalEvent
	for rows.Next() {
		var e model.LocalEvent
		var allDayInt int

		if err := rows.Scan(&e.ID, &e.Title, &e.Notes, &e.StartTime, &e.EndTime, &allDayInt, &e.Location, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan local event: %w", err)
		}

		e.AllDay = allDayInt != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *LocalEventStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM local_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete local event: %w", err)
	}
	return nil
}
