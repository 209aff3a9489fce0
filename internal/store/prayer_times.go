package store

import (
	"database/sql"
	"fmt"
	"time"

	"taqwim/internal/model"
)

const dayFormat = "2006-01-02"

// PrayerTimeStore persists computed prayer times keyed by
// (day, latitude, longitude, method). Rows are immutable once written:
// prayer times for a fixed key never change, so there is no TTL and no
// update path.
type PrayerTimeStore struct {
	db *sql.DB
}

func NewPrayerTimeStore(db *sql.DB) *PrayerTimeStore {
	return &PrayerTimeStore{db: db}
}

// Get returns the cached prayer times for the exact key, or nil on a miss.
// day must already be normalized to local midnight; latitude and longitude
// must already be rounded to the cache precision.
func (s *PrayerTimeStore) Get(day time.Time, latitude, longitude float64, method string) (*model.DailyPrayerTimes, error) {
	var p model.DailyPrayerTimes
	var dayStr string

	err := s.db.QueryRow(
		`SELECT day, latitude, longitude, method, fajr, sunrise, dhuhr, asr, maghrib, sunset, isha
		 FROM prayer_times
		 WHERE day = ? AND latitude = ? AND longitude = ? AND method = ?`,
		day.Format(dayFormat), latitude, longitude, method,
	).Scan(&dayStr, &p.Latitude, &p.Longitude, &p.Method, &p.Fajr, &p.Sunrise, &p.Dhuhr, &p.Asr, &p.Maghrib, &p.Sunset, &p.Isha)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query prayer times: %w", err)
	}

	parsed, err := time.ParseInLocation(dayFormat, dayStr, day.Location())
	if err != nil {
		return nil, fmt.Errorf("parse cached day %q: %w", dayStr, err)
	}
	p.Date = parsed

	return &p, nil
}

// Put writes a day of prayer times. Conflicting concurrent writes for the
// same key carry identical values, so the insert ignores duplicates instead
// of failing.
func (s *PrayerTimeStore) Put(p *model.DailyPrayerTimes) error {
	_, err := s.db.Exec(
		`INSERT INTO prayer_times (day, latitude, longitude, method, fajr, sunrise, dhuhr, asr, maghrib, sunset, isha)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (day, latitude, longitude, method) DO NOTHING`,
		p.Date.Format(dayFormat), p.Latitude, p.Longitude, p.Method,
		p.Fajr, p.Sunrise, p.Dhuhr, p.Asr, p.Maghrib, p.Sunset, p.Isha,
	)
	if err != nil {
		return fmt.Errorf("insert prayer times: %w", err)
	}
	return nil
}

// Count returns the number of cached days, used by the status endpoint.
func (s *PrayerTimeStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM prayer_times").Scan(&n); err != nil {
		return 0, fmt.Errorf("count prayer times: %w", err)
	}
	return n, nil
}
