package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taqwim/internal/calendar"
	"taqwim/internal/store"
	"taqwim/internal/timeutil"
	"taqwim/internal/websocket"
)

type EventHandler struct {
	agg    *calendar.Aggregator
	events *store.LocalEventStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewEventHandler(agg *calendar.Aggregator, events *store.LocalEventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{agg: agg, events: events, hub: hub, logger: logger}
}

// List aggregates events over the requested window, defaulting to the
// standard one month back / two months forward window.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	start, end := timeutil.DefaultWindow(time.Now())

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		end = t
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	events, err := h.agg.Load(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"start":  start,
		"end":    end,
	})
}

// Refresh re-runs the full aggregation and returns the new snapshot.
func (h *EventHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.agg.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type createEventRequest struct {
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	AllDay    bool      `json:"all_day"`
	Location  string    `json:"location"`
}

// Create inserts an event into the daemon's own calendar. It appears in the
// merged view on the next refresh.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		writeError(w, http.StatusBadRequest, "start_time and end_time are required")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		writeError(w, http.StatusBadRequest, "end_time must be after start_time")
		return
	}

	event, err := h.events.Create(req.Title, req.Notes, req.StartTime, req.EndTime, req.AllDay, req.Location)
	if err != nil {
		h.logger.Error("create local event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.refreshInBackground()
	writeJSON(w, http.StatusCreated, event)
}

// Delete removes a local event. Deleting an already absent id succeeds.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := h.events.Delete(id); err != nil {
		h.logger.Error("delete local event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	h.refreshInBackground()
	w.WriteHeader(http.StatusNoContent)
}

// refreshInBackground folds a local mutation into the snapshot without making
// the writer wait on the remote sources.
func (h *EventHandler) refreshInBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := h.agg.Refresh(ctx); err != nil {
			h.logger.Warn("post-write refresh failed", "error", err)
		}
	}()
}
