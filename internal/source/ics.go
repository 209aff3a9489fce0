package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"taqwim/internal/model"
)

// maxOccurrences caps recurrence expansion per event to guard against
// unbounded rules.
const maxOccurrences = 1000

// ICS lists events from a subscribed ICS feed, expanding recurrence rules
// to the concrete occurrences that intersect the aggregation window.
type ICS struct {
	name       string
	feedURL    string
	httpClient *http.Client
	loc        *time.Location
}

// NewICS creates an ICS feed source. name labels the feed in logs and
// status output; loc is the display timezone occurrences are converted to.
func NewICS(name, feedURL string, loc *time.Location) *ICS {
	if loc == nil {
		loc = time.Local
	}
	return &ICS{
		name:       name,
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		loc:        loc,
	}
}

func (s *ICS) Name() string { return "ics:" + s.name }

func (s *ICS) Kind() model.EventSource { return model.SourceICS }

// Events fetches the feed and returns all occurrences overlapping [start, end).
func (s *ICS) Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, &ProviderError{Source: s.Name(), Message: err.Error()}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Source: s.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Source: s.Name(), StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Source: s.Name(), Message: err.Error()}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, &DecodeError{Source: s.Name(), Err: err}
	}

	var events []model.CalendarEvent
	for _, ve := range cal.Events() {
		events = append(events, s.expandEvent(ve, start, end)...)
	}
	return events, nil
}

// expandEvent turns one VEVENT into zero or more concrete occurrences within
// the window. Unparseable events are skipped; one bad record must not sink
// the whole feed.
func (s *ICS) expandEvent(ve *ical.VEvent, windowStart, windowEnd time.Time) []model.CalendarEvent {
	evStart, err := ve.GetStartAt()
	if err != nil {
		return nil
	}
	evEnd, err := ve.GetEndAt()
	if err != nil || evEnd.Before(evStart) {
		evEnd = evStart
	}

	allDay := isAllDayStart(ve)
	if allDay {
		y, m, d := evStart.Date()
		evStart = time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		if !evEnd.After(evStart) {
			evEnd = evStart.AddDate(0, 0, 1)
		}
	}

	title := untitledEvent
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		title = p.Value
	}
	var location, notes string
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		notes = p.Value
	}

	base := model.CalendarEvent{
		Title:    title,
		AllDay:   allDay,
		Location: location,
		Notes:    notes,
		Source:   model.SourceICS,
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if evStart.Before(windowEnd) && evEnd.After(windowStart) {
			base.StartTime = evStart.In(s.loc)
			base.EndTime = evEnd.In(s.loc)
			return []model.CalendarEvent{base}
		}
		return nil
	}

	rule, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil
	}
	rule.DTStart(evStart)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exDates(ve) {
		set.ExDate(ex.In(evStart.Location()))
	}

	duration := evEnd.Sub(evStart)
	occStarts := set.Between(windowStart.In(evStart.Location()), windowEnd.In(evStart.Location()), true)
	if len(occStarts) > maxOccurrences {
		occStarts = occStarts[:maxOccurrences]
	}

	out := make([]model.CalendarEvent, 0, len(occStarts))
	for _, occStart := range occStarts {
		occ := base
		occ.StartTime = occStart.In(s.loc)
		occ.EndTime = occStart.Add(duration).In(s.loc)
		out = append(out, occ)
	}
	return out
}

// isAllDayStart reports whether DTSTART carries VALUE=DATE (or a date-only
// value), the feed representation of an all-day event.
func isAllDayStart(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// exDates collects the event's EXDATE exclusions; malformed entries are
// dropped.
func exDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime handles the basic ICS date and date-time value forms.
func parseICSTime(v string) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
