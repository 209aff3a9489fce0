package prayer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"taqwim/internal/model"
	"taqwim/internal/timeutil"
)

// coordPrecision is the number of decimal places a coordinate is rounded to
// before it becomes part of a cache key. Four places is roughly 11 meters,
// far below the distance at which prayer times change, and avoids exact
// floating-point comparison on lookups.
const coordPrecision = 1e4

// Store is the persistence collaborator for computed prayer times.
type Store interface {
	Get(day time.Time, latitude, longitude float64, method string) (*model.DailyPrayerTimes, error)
	Put(*model.DailyPrayerTimes) error
}

// TimingsAPI is the remote computation collaborator.
type TimingsAPI interface {
	Timings(ctx context.Context, t time.Time, latitude, longitude float64, method Method) (*Timings, error)
}

// Service answers prayer-time queries from a persistent cache, falling back
// to the computation API on a miss. For a fixed (day, location, method) key
// the computed value never changes, so cache entries live forever.
//
// Concurrent misses for the same key are coalesced: exactly one API call is
// in flight per key, and every concurrent caller receives its result (or its
// error). A failed fetch caches nothing.
type Service struct {
	store  Store
	api    TimingsAPI
	loc    *time.Location
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs a prayer-time service. loc is the civil timezone used
// to normalize query dates to day granularity.
func NewService(store Store, api TimingsAPI, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		api:    api,
		loc:    loc,
		logger: logger,
	}
}

// RoundCoord rounds a coordinate to the cache-key precision.
func RoundCoord(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}

// ForDate returns the prayer times for the calendar day containing date at
// the given coordinates, reading the cache first and computing on a miss.
func (s *Service) ForDate(ctx context.Context, date time.Time, latitude, longitude float64, method Method) (*model.DailyPrayerTimes, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("unknown calculation method %q", string(method))
	}

	day := timeutil.StartOfDay(date, s.loc)
	latitude = RoundCoord(latitude)
	longitude = RoundCoord(longitude)

	cached, err := s.store.Get(day, latitude, longitude, string(method))
	if err != nil {
		return nil, fmt.Errorf("read prayer cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	key := fmt.Sprintf("%s|%.4f|%.4f|%s", day.Format("2006-01-02"), latitude, longitude, method)

	// The winning fetch runs detached from the individual caller's context:
	// other coalesced callers may still be waiting on its result after this
	// caller gives up.
	fetchCtx := context.WithoutCancel(ctx)

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.fetchAndStore(fetchCtx, day, latitude, longitude, method)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("coalesced prayer fetch", "key", key)
	}

	return v.(*model.DailyPrayerTimes), nil
}

func (s *Service) fetchAndStore(ctx context.Context, day time.Time, latitude, longitude float64, method Method) (*model.DailyPrayerTimes, error) {
	// A losing flight from a moment ago may have filled the cache between
	// our miss and winning the flight.
	cached, err := s.store.Get(day, latitude, longitude, string(method))
	if err != nil {
		return nil, fmt.Errorf("read prayer cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	timings, err := s.api.Timings(ctx, day, latitude, longitude, method)
	if err != nil {
		return nil, fmt.Errorf("fetch prayer times for %s: %w", day.Format("2006-01-02"), err)
	}

	row := &model.DailyPrayerTimes{
		Date:      day,
		Fajr:      timings.Fajr,
		Sunrise:   timings.Sunrise,
		Dhuhr:     timings.Dhuhr,
		Asr:       timings.Asr,
		Maghrib:   timings.Maghrib,
		Sunset:    timings.Sunset,
		Isha:      timings.Isha,
		Method:    string(method),
		Latitude:  latitude,
		Longitude: longitude,
	}

	if err := s.store.Put(row); err != nil {
		return nil, fmt.Errorf("write prayer cache: %w", err)
	}

	s.logger.Info("prayer times computed",
		"day", day.Format("2006-01-02"),
		"method", string(method),
	)

	return row, nil
}

// ForWeek returns seven consecutive days of prayer times starting at the day
// containing start. Days are fetched in order; each one goes through the
// same cache path as ForDate.
func (s *Service) ForWeek(ctx context.Context, start time.Time, latitude, longitude float64, method Method) ([]model.DailyPrayerTimes, error) {
	week := make([]model.DailyPrayerTimes, 0, 7)
	for offset := 0; offset < 7; offset++ {
		day := timeutil.AddDays(start, offset)
		row, err := s.ForDate(ctx, day, latitude, longitude, method)
		if err != nil {
			return nil, err
		}
		week = append(week, *row)
	}
	return week, nil
}

// Location returns the civil timezone the service normalizes days in.
func (s *Service) Location() *time.Location {
	return s.loc
}
