package store

import (
	"database/sql"
	"fmt"
	"time"

	"taqwim/internal/model"
)

// LocationStore persists the single authoritative user location. At most one
// row exists; setting a new location replaces the previous one.
type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

// Get returns the active location, or nil if none has been set yet.
func (s *LocationStore) Get() (*model.UserLocation, error) {
	var l model.UserLocation

	err := s.db.QueryRow(
		`SELECT latitude, longitude, city, country, calculation_method, updated_at
		 FROM user_location WHERE id = 1`,
	).Scan(&l.Latitude, &l.Longitude, &l.City, &l.Country, &l.CalculationMethod, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user location: %w", err)
	}

	return &l, nil
}

// Set replaces the active location.
func (s *LocationStore) Set(l *model.UserLocation) error {
	_, err := s.db.Exec(
		`INSERT INTO user_location (id, latitude, longitude, city, country, calculation_method, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   latitude = excluded.latitude,
		   longitude = excluded.longitude,
		   city = excluded.city,
		   country = excluded.country,
		   calculation_method = excluded.calculation_method,
		   updated_at = excluded.updated_at`,
		l.Latitude, l.Longitude, l.City, l.Country, l.CalculationMethod, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user location: %w", err)
	}
	return nil
}
