package prayer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taqwim/internal/model"
	"taqwim/internal/timeutil"
)

// canonicalOrder is the fixed daily sequence of the five prayers.
var canonicalOrder = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// NextPrayer names the next upcoming prayer and its absolute time.
type NextPrayer struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// Next resolves the next prayer strictly after now. If every prayer of now's
// calendar day has passed, it rolls over to tomorrow's Fajr; the rollover is
// unconditional and only fails if tomorrow's times cannot be fetched.
func (s *Service) Next(ctx context.Context, now time.Time, latitude, longitude float64, method Method) (*NextPrayer, error) {
	today, err := s.ForDate(ctx, now, latitude, longitude, method)
	if err != nil {
		return nil, err
	}

	if np, ok := nextOnDay(now, today, s.loc); ok {
		return np, nil
	}

	tomorrowDay := timeutil.AddDays(now, 1)
	tomorrow, err := s.ForDate(ctx, tomorrowDay, latitude, longitude, method)
	if err != nil {
		return nil, err
	}

	at, err := clockOnDay(tomorrow.Fajr, tomorrow.Date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse tomorrow's Fajr %q: %w", tomorrow.Fajr, err)
	}
	return &NextPrayer{Name: "Fajr", Time: at}, nil
}

// nextOnDay scans the five canonical prayers of one cached day and returns
// the first strictly after now. Unparseable entries are skipped rather than
// failing the scan.
func nextOnDay(now time.Time, day *model.DailyPrayerTimes, loc *time.Location) (*NextPrayer, bool) {
	times := []struct {
		name  string
		clock string
	}{
		{canonicalOrder[0], day.Fajr},
		{canonicalOrder[1], day.Dhuhr},
		{canonicalOrder[2], day.Asr},
		{canonicalOrder[3], day.Maghrib},
		{canonicalOrder[4], day.Isha},
	}

	for _, entry := range times {
		at, err := clockOnDay(entry.clock, now, loc)
		if err != nil {
			continue
		}
		if at.After(now) {
			return &NextPrayer{Name: entry.name, Time: at}, true
		}
	}
	return nil, false
}

// clockOnDay places an "HH:MM" clock string onto day's calendar date in loc.
// The API sometimes suffixes a timezone tag ("05:12 (PKT)"); anything after
// the first space is ignored.
func clockOnDay(clock string, day time.Time, loc *time.Location) (time.Time, error) {
	if i := strings.IndexByte(clock, ' '); i >= 0 {
		clock = clock[:i]
	}
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

// FormatClock renders an "HH:MM" 24-hour string as a 12-hour display time
// ("19:46" -> "7:46 PM"). Unparseable input is returned unchanged.
func FormatClock(clock string) string {
	if i := strings.IndexByte(clock, ' '); i >= 0 {
		clock = clock[:i]
	}
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return parsed.Format("3:04 PM")
}
