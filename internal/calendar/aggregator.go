// Package calendar merges the configured event sources into one consistent,
// time-ordered view of the user's schedule.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"taqwim/internal/model"
	"taqwim/internal/source"
	"taqwim/internal/timeutil"
)

// NotifyFunc is called after a successful refresh, with the number of events
// in the new snapshot.
type NotifyFunc func(count int)

// Snapshot is the atomically replaced result of the latest refresh.
type Snapshot struct {
	Events    []model.CalendarEvent `json:"events"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// SourceStatus describes one source's outcome in the latest load, for the
// status endpoint.
type SourceStatus struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

// Aggregator fans out to every configured source concurrently, merges their
// events, and keeps the latest result as a snapshot. A source failing is
// tolerated as long as at least one other source answers; only when every
// source fails does a load surface an error.
type Aggregator struct {
	now    func() time.Time
	notify NotifyFunc
	logger *slog.Logger

	mu       sync.RWMutex
	sources  []source.Source
	snapshot Snapshot
	statuses []SourceStatus
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithNotify registers a callback fired after each successful refresh.
func WithNotify(fn NotifyFunc) Option {
	return func(a *Aggregator) { a.notify = fn }
}

// New creates an aggregator over the given sources. Source order decides the
// tie-break rank for events with equal start times.
func New(sources []source.Source, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetSources replaces the fan-out set, taking effect on the next Load or
// Refresh. Used when the configured feed list changes at runtime.
func (a *Aggregator) SetSources(sources []source.Source) {
	a.mu.Lock()
	a.sources = sources
	a.mu.Unlock()
}

// Load fetches every source concurrently over the identical window and
// returns the merged, sorted event list. The merged order is a pure function
// of the events themselves, never of which source's fetch finished first.
func (a *Aggregator) Load(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	a.mu.RLock()
	sources := a.sources
	a.mu.RUnlock()

	results := make([][]model.CalendarEvent, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			events, err := src.Events(gctx, start, end)
			if err != nil {
				// Recorded, not returned: one bad source must not cancel
				// the siblings.
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return nil
			}
			results[i] = events
			return nil
		})
	}
	// Only nil errors flow through the group; Wait is for completion.
	_ = g.Wait()

	statuses := make([]SourceStatus, len(sources))
	anyOK := false
	for i, src := range sources {
		statuses[i] = SourceStatus{Name: src.Name(), Kind: string(src.Kind())}
		if errs[i] != nil {
			statuses[i].Error = errs[i].Error()
			a.logger.Warn("calendar source failed", "source", src.Name(), "error", errs[i])
		} else {
			anyOK = true
		}
	}

	a.mu.Lock()
	a.statuses = statuses
	a.mu.Unlock()

	if !anyOK && len(sources) > 0 {
		return nil, fmt.Errorf("all calendar sources failed: %w", multierr.Combine(errs...))
	}

	merged := merge(results)
	a.logger.Debug("calendar load complete",
		"window_start", start,
		"window_end", end,
		"events", len(merged),
	)
	return merged, nil
}

// merge concatenates per-source results, assigns fresh ids, and imposes the
// total order: ascending start time, ties broken by source rank then title.
func merge(results [][]model.CalendarEvent) []model.CalendarEvent {
	var merged []model.CalendarEvent
	for _, events := range results {
		merged = append(merged, events...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})

	// Ids are scoped to this result; sources do not share an id namespace,
	// so stable cross-call identity is not promised.
	for i := range merged {
		merged[i].ID = uuid.NewString()
	}
	return merged
}

// Refresh re-runs the full aggregation over the default window and replaces
// the snapshot. Readers observe either the old snapshot or the new one,
// never a partial state.
func (a *Aggregator) Refresh(ctx context.Context) (Snapshot, error) {
	now := a.now()
	start, end := timeutil.DefaultWindow(now)

	events, err := a.Load(ctx, start, end)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Events: events, UpdatedAt: now}
	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	a.logger.Info("calendar refreshed", "events", len(events))
	if a.notify != nil {
		a.notify(len(events))
	}
	return snap, nil
}

// Snapshot returns the latest refresh result. The zero snapshot (no events,
// zero UpdatedAt) means no refresh has succeeded yet.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// SourceStatuses reports each source's outcome in the most recent load.
func (a *Aggregator) SourceStatuses() []SourceStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]SourceStatus, len(a.statuses))
	copy(out, a.statuses)
	return out
}
