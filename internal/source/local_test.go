package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"taqwim/internal/model"
)

type fakeDevice struct {
	rows  []model.LocalEvent
	err   error
	calls int
}

func (f *fakeDevice) ListByRange(start, end time.Time) ([]model.LocalEvent, error) {
	f.calls++
	return f.rows, f.err
}

func grantAlways(ctx context.Context) (bool, error)  { return true, nil }
func refuseAlways(ctx context.Context) (bool, error) { return false, nil }

func TestLocalNotDeterminedYieldsEmpty(t *testing.T) {
	device := &fakeDevice{rows: []model.LocalEvent{{Title: "hidden"}}}
	l := NewLocal(device, AuthNotDetermined, grantAlways)

	events, err := l.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events before access was requested, want 0", len(events))
	}
	if device.calls != 0 {
		t.Error("provider must not be queried before authorization")
	}
}

func TestLocalRequestAccessGranted(t *testing.T) {
	device := &fakeDevice{rows: []model.LocalEvent{{
		Title:     "Dentist",
		StartTime: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC),
	}}}
	l := NewLocal(device, AuthNotDetermined, grantAlways)

	status, err := l.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if status != AuthAuthorized {
		t.Fatalf("status = %v, want authorized", status)
	}

	events, err := l.Events(context.Background(), time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Dentist" {
		t.Errorf("events = %+v", events)
	}
	if events[0].Source != model.SourceLocal {
		t.Errorf("source = %q, want local", events[0].Source)
	}
}

func TestLocalDeniedFailsUnavailable(t *testing.T) {
	l := NewLocal(&fakeDevice{}, AuthNotDetermined, refuseAlways)

	status, err := l.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if status != AuthDenied {
		t.Fatalf("status = %v, want denied", status)
	}

	_, err = l.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestLocalRestrictedFailsUnavailable(t *testing.T) {
	l := NewLocal(&fakeDevice{}, AuthRestricted, grantAlways)

	_, err := l.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}

	// Restricted does not budge on request.
	status, err := l.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if status != AuthRestricted {
		t.Errorf("status = %v, want restricted", status)
	}
}

func TestLocalRequestAccessIsIdempotentOnceDecided(t *testing.T) {
	calls := 0
	l := NewLocal(&fakeDevice{}, AuthNotDetermined, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})

	for i := 0; i < 3; i++ {
		if _, err := l.RequestAccess(context.Background()); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("prompt invoked %d times, want 1", calls)
	}
	if l.Status() != AuthAuthorized {
		t.Errorf("status = %v", l.Status())
	}
}

func TestLocalUntitledPlaceholder(t *testing.T) {
	device := &fakeDevice{rows: []model.LocalEvent{{Title: ""}}}
	l := NewLocal(device, AuthNotDetermined, grantAlways)
	if _, err := l.RequestAccess(context.Background()); err != nil {
		t.Fatal(err)
	}

	events, err := l.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if events[0].Title != "Untitled Event" {
		t.Errorf("title = %q", events[0].Title)
	}
}

func TestLocalProviderFailureIsProviderError(t *testing.T) {
	device := &fakeDevice{err: errors.New("disk gone")}
	l := NewLocal(device, AuthNotDetermined, grantAlways)
	if _, err := l.RequestAccess(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := l.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Errorf("error = %v, want *ProviderError", err)
	}
}
