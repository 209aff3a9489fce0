package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const simpleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:one@example.com
DTSTART:20250901T090000Z
DTEND:20250901T100000Z
SUMMARY:Khutbah prep
LOCATION:Masjid
END:VEVENT
BEGIN:VEVENT
UID:two@example.com
DTSTART;VALUE=DATE:20250903
DTEND;VALUE=DATE:20250904
SUMMARY:Community day
END:VEVENT
BEGIN:VEVENT
UID:outside@example.com
DTSTART:20251201T090000Z
DTEND:20251201T100000Z
SUMMARY:Far future
END:VEVENT
END:VCALENDAR
`

const recurringFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:halaqa@example.com
DTSTART:20250901T180000Z
DTEND:20250901T190000Z
RRULE:FREQ=WEEKLY;COUNT=10
EXDATE:20250908T180000Z
SUMMARY:Weekly halaqa
END:VEVENT
END:VCALENDAR
`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestICSWindowFiltering(t *testing.T) {
	srv := serveFeed(t, simpleFeed)
	s := NewICS("test", srv.URL, time.UTC)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)

	events, err := s.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (far-future one excluded)", len(events))
	}

	timed := events[0]
	if timed.Title != "Khutbah prep" || timed.AllDay {
		t.Errorf("timed event = %+v", timed)
	}
	if timed.Location != "Masjid" {
		t.Errorf("location = %q", timed.Location)
	}

	allDay := events[1]
	if !allDay.AllDay {
		t.Error("VALUE=DATE event should be all-day")
	}
	if !allDay.StartTime.Equal(time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-day start = %v", allDay.StartTime)
	}
}

func TestICSRecurrenceExpansion(t *testing.T) {
	srv := serveFeed(t, recurringFeed)
	s := NewICS("test", srv.URL, time.UTC)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

	events, err := s.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("events: %v", err)
	}

	// Weekly from Sep 1: occurrences on 1, 8, 15, 22, 29 — minus the
	// EXDATE on the 8th.
	if len(events) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(events))
	}
	wantDays := []int{1, 15, 22, 29}
	for i, ev := range events {
		if ev.StartTime.Day() != wantDays[i] {
			t.Errorf("occurrence %d on day %d, want %d", i, ev.StartTime.Day(), wantDays[i])
		}
		if got := ev.EndTime.Sub(ev.StartTime); got != time.Hour {
			t.Errorf("occurrence %d duration = %v, want 1h", i, got)
		}
	}
}

func TestICSHTTPFailureIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := NewICS("test", srv.URL, time.UTC)
	_, err := s.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusGone {
		t.Errorf("status = %d", pe.StatusCode)
	}
}

func TestICSGarbageIsDecodeError(t *testing.T) {
	srv := serveFeed(t, "this is not a calendar")
	s := NewICS("test", srv.URL, time.UTC)

	_, err := s.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Errorf("error = %v, want *DecodeError", err)
	}
}
