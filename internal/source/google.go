package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"taqwim/internal/model"
)

const defaultGoogleBaseURL = "https://www.googleapis.com/calendar/v3"

// TokenProvider supplies a bearer token for the Google calendar API.
// An empty token with a nil error means "account not connected", which the
// source treats as a feature that is simply off, not as a failure.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Google lists events from the connected account's primary Google calendar.
type Google struct {
	tokens     TokenProvider
	httpClient *http.Client
	baseURL    string
	loc        *time.Location
}

// NewGoogle creates the Google calendar source. baseURL is overridable for
// tests; pass "" for the production endpoint. loc is the civil timezone
// whole-day events are anchored in.
func NewGoogle(tokens TokenProvider, baseURL string, loc *time.Location) *Google {
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &Google{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		loc:        loc,
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Kind() model.EventSource { return model.SourceGoogle }

type googleEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type googleEvent struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	HTMLLink    string          `json:"htmlLink"`
	Start       googleEventTime `json:"start"`
	End         googleEventTime `json:"end"`
}

type googleEventList struct {
	Items []googleEvent `json:"items"`
}

// Events lists the primary calendar's events overlapping [start, end).
// With no connected account it contributes an empty list so that
// aggregation proceeds on the remaining sources.
//
// Failure mapping: ErrUnavailable is reserved for credential problems
// (token retrieval failed, or the provider rejected the token with 401/403).
// Transport failures — timeouts and unreachable hosts included — surface as
// ProviderError, like any other provider-side failure.
func (g *Google) Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("google access token: %w: %v", ErrUnavailable, err)
	}
	if token == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("timeMin", start.UTC().Format(time.RFC3339))
	q.Set("timeMax", end.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	reqURL := g.baseURL + "/calendars/primary/events?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Source: g.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("google calendar rejected token (status %d): %w", resp.StatusCode, ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, &ProviderError{Source: g.Name(), StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var list googleEventList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &DecodeError{Source: g.Name(), Err: err}
	}

	events := make([]model.CalendarEvent, 0, len(list.Items))
	for _, item := range list.Items {
		startTime, allDay, ok := g.parseEventTime(item.Start, time.Time{})
		if !ok {
			// No usable start: the record cannot be placed on the timeline.
			continue
		}
		endTime, _, ok := g.parseEventTime(item.End, startTime)
		if !ok {
			endTime = startTime
		}

		title := item.Summary
		if title == "" {
			title = untitledEvent
		}

		events = append(events, model.CalendarEvent{
			Title:     title,
			StartTime: startTime,
			EndTime:   endTime,
			AllDay:    allDay,
			Location:  item.Location,
			Notes:     item.Description,
			URL:       item.HTMLLink,
			Source:    model.SourceGoogle,
		})
	}
	return events, nil
}

// parseEventTime decodes the provider's two-shape date representation:
// a precise dateTime means a timed event, a whole-day date means an all-day
// event anchored at local midnight. fallback is used when both are absent.
func (g *Google) parseEventTime(t googleEventTime, fallback time.Time) (time.Time, bool, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return parsed, false, true
		}
	}
	if t.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", t.Date, g.loc)
		if err == nil {
			return parsed, true, true
		}
	}
	if !fallback.IsZero() {
		return fallback, false, true
	}
	return time.Time{}, false, false
}
