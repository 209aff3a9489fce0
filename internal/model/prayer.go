package model

import "time"

// DailyPrayerTimes is one cached day of computed prayer times for a fixed
// location and calculation method. Times are "HH:MM" 24-hour strings in the
// location's local civil time, exactly as the computation API returns them.
// Once written for a given (day, lat, lon, method) key the row never changes.
type DailyPrayerTimes struct {
	Date      time.Time `json:"date"` // local midnight of the covered day
	Fajr      string    `json:"fajr"`
	Sunrise   string    `json:"sunrise"`
	Dhuhr     string    `json:"dhuhr"`
	Asr       string    `json:"asr"`
	Maghrib   string    `json:"maghrib"`
	Sunset    string    `json:"sunset"`
	Isha      string    `json:"isha"`
	Method    string    `json:"method"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// UserLocation is the single authoritative location record. Replacing it
// discards the previous one.
type UserLocation struct {
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	City              string    `json:"city,omitempty"`
	Country           string    `json:"country,omitempty"`
	CalculationMethod string    `json:"calculation_method"`
	UpdatedAt         time.Time `json:"updated_at"`
}
