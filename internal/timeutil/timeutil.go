// Package timeutil holds the calendar-window arithmetic shared by the
// aggregator and the prayer cache. Everything here is calendar-aware:
// a "day" is a civil day in the given location, not 24 hours, so the
// functions behave correctly across DST transitions.
package timeutil

import "time"

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayBounds returns the [start, end) window covering t's calendar day in loc:
// start is local midnight, end is the start of the next day. On a DST
// transition day the wall-clock span is 23 or 25 hours; both bounds are still
// exact local midnights.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	start = StartOfDay(t, loc)
	end = AddDays(start, 1)
	return start, end
}

// AddDays adds n calendar days to t, preserving the wall-clock time of day.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths adds n calendar months to t. Like time.AddDate, overflowing days
// normalize forward (Jan 31 + 1 month = Mar 2 or 3).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// DefaultWindow returns the aggregation range used when a caller does not
// supply one: one month back through two months ahead of now.
func DefaultWindow(now time.Time) (start, end time.Time) {
	return AddMonths(now, -1), AddMonths(now, 2)
}
