package prayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taqwim/internal/model"
)

// memStore is an in-memory Store used to isolate service behavior from sqlite.
type memStore struct {
	mu   sync.Mutex
	rows map[string]*model.DailyPrayerTimes
	puts int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*model.DailyPrayerTimes)}
}

func (m *memStore) key(day time.Time, lat, lon float64, method string) string {
	return fmt.Sprintf("%s|%.4f|%.4f|%s", day.Format("2006-01-02"), lat, lon, method)
}

func (m *memStore) Get(day time.Time, lat, lon float64, method string) (*model.DailyPrayerTimes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[m.key(day, lat, lon, method)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) Put(p *model.DailyPrayerTimes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	cp := *p
	m.rows[m.key(p.Date, p.Latitude, p.Longitude, p.Method)] = &cp
	return nil
}

// fakeAPI counts invocations and can be made to block or fail.
type fakeAPI struct {
	calls   atomic.Int64
	err     error
	release chan struct{} // if non-nil, Timings blocks until closed
}

func (f *fakeAPI) Timings(ctx context.Context, t time.Time, lat, lon float64, method Method) (*Timings, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Timings{
		Fajr:    "04:32",
		Sunrise: "05:58",
		Dhuhr:   "12:09",
		Asr:     "15:41",
		Maghrib: "18:20",
		Sunset:  "18:20",
		Isha:    "19:46",
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForDateCachesAfterFirstFetch(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{}
	svc := NewService(store, api, time.UTC, discardLogger())

	date := time.Date(2025, 9, 1, 14, 30, 0, 0, time.UTC)

	first, err := svc.ForDate(context.Background(), date, 24.8607, 67.0011, MethodKarachi)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Any timestamp within the same day hits the same day-granular key.
	second, err := svc.ForDate(context.Background(), date.Add(5*time.Hour), 24.8607, 67.0011, MethodKarachi)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := api.calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1", got)
	}
	if *first != *second {
		t.Errorf("cached value differs: %+v vs %+v", first, second)
	}
	if !first.Date.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date not normalized to midnight: %v", first.Date)
	}
}

func TestForDateCoordinateRounding(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{}
	svc := NewService(store, api, time.UTC, discardLogger())

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	// Within ~11m of each other: same cache key after 4dp rounding.
	if _, err := svc.ForDate(context.Background(), date, 24.86070001, 67.00110002, MethodKarachi); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := svc.ForDate(context.Background(), date, 24.86069999, 67.00109998, MethodKarachi); err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := api.calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1 (coordinates should round to the same key)", got)
	}

	// A genuinely different location is a new key.
	if _, err := svc.ForDate(context.Background(), date, 31.5204, 74.3587, MethodKarachi); err != nil {
		t.Fatalf("third: %v", err)
	}
	if got := api.calls.Load(); got != 2 {
		t.Errorf("API calls = %d, want 2", got)
	}
}

func TestForDateCoalescesConcurrentMisses(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{release: make(chan struct{})}
	svc := NewService(store, api, time.UTC, discardLogger())

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	const n = 25
	var wg sync.WaitGroup
	results := make([]*model.DailyPrayerTimes, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ForDate(context.Background(), date, 24.8607, 67.0011, MethodKarachi)
		}(i)
	}

	// Let the goroutines pile up on the in-flight fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(api.release)
	wg.Wait()

	if got := api.calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want exactly 1 for %d concurrent misses", got, n)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if *results[i] != *results[0] {
			t.Errorf("caller %d got a different result", i)
		}
	}
	if store.puts != 1 {
		t.Errorf("store puts = %d, want 1", store.puts)
	}
}

func TestForDateFailureReachesAllWaitersAndDoesNotPoison(t *testing.T) {
	store := newMemStore()
	boom := errors.New("computation unavailable")
	api := &fakeAPI{err: boom, release: make(chan struct{})}
	svc := NewService(store, api, time.UTC, discardLogger())

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ForDate(context.Background(), date, 24.8607, 67.0011, MethodKarachi)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(api.release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("caller %d error = %v, want wrapped %v", i, err, boom)
		}
	}
	if store.puts != 0 {
		t.Errorf("failed fetch wrote %d rows to the cache", store.puts)
	}

	// The key must not be stuck: a later call retries the fetch.
	api.err = nil
	api.release = nil
	row, err := svc.ForDate(context.Background(), date, 24.8607, 67.0011, MethodKarachi)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if row.Fajr != "04:32" {
		t.Errorf("retry result = %+v", row)
	}
}

func TestForDateAbandonedCallerDoesNotCancelSharedFetch(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{release: make(chan struct{})}
	svc := NewService(store, api, time.UTC, discardLogger())

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.ForDate(ctx, date, 24.8607, 67.0011, MethodKarachi)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	close(api.release)
	<-done

	// The flight ran to completion and filled the cache despite the
	// caller's cancellation.
	row, err := store.Get(date, 24.8607, 67.0011, string(MethodKarachi))
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if row == nil {
		t.Error("shared fetch should have completed and cached its result")
	}
}

func TestForWeekReturnsSevenDaysInOrder(t *testing.T) {
	store := newMemStore()
	api := &fakeAPI{}
	svc := NewService(store, api, time.UTC, discardLogger())

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	week, err := svc.ForWeek(context.Background(), start, 24.8607, 67.0011, MethodKarachi)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("got %d days, want 7", len(week))
	}
	for i, day := range week {
		want := start.AddDate(0, 0, i)
		if !day.Date.Equal(want) {
			t.Errorf("day %d = %v, want %v", i, day.Date, want)
		}
	}
	if got := api.calls.Load(); got != 7 {
		t.Errorf("API calls = %d, want 7", got)
	}

	// Re-fetching the same week is fully served by the cache.
	if _, err := svc.ForWeek(context.Background(), start, 24.8607, 67.0011, MethodKarachi); err != nil {
		t.Fatalf("second week: %v", err)
	}
	if got := api.calls.Load(); got != 7 {
		t.Errorf("API calls after cached week = %d, want 7", got)
	}
}

func TestForDateRejectsUnknownMethod(t *testing.T) {
	svc := NewService(newMemStore(), &fakeAPI{}, time.UTC, discardLogger())
	if _, err := svc.ForDate(context.Background(), time.Now(), 0, 0, Method("LUNAR")); err == nil {
		t.Error("expected error for unknown method")
	}
}
