package handler

import (
	"log/slog"
	"net/http"

	"taqwim/internal/auth"
	"taqwim/internal/calendar"
	"taqwim/internal/source"
	"taqwim/internal/store"
	"taqwim/internal/websocket"
)

type StatusHandler struct {
	agg      *calendar.Aggregator
	local    *source.Local
	manager  *auth.Manager
	location *store.LocationStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewStatusHandler(agg *calendar.Aggregator, local *source.Local, manager *auth.Manager, location *store.LocationStore, hub *websocket.Hub, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{agg: agg, local: local, manager: manager, location: location, hub: hub, logger: logger}
}

// Get reports the daemon's view of its own health: per-source outcomes from
// the latest aggregation, the Google account, and whether a location is set.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.agg.Snapshot()

	email, err := h.manager.AccountEmail()
	if err != nil {
		h.logger.Error("read google account", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read credential")
		return
	}

	loc, err := h.location.Get()
	if err != nil {
		h.logger.Error("read location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read location")
		return
	}

	resp := map[string]any{
		"sources":         h.agg.SourceStatuses(),
		"event_count":     len(snap.Events),
		"last_refresh":    snap.UpdatedAt,
		"local_calendar":  h.local.Status().String(),
		"google_account":  email,
		"location_set":    loc != nil,
		"websocket_peers": h.hub.ClientCount(),
	}
	if loc != nil {
		resp["city"] = loc.City
	}

	writeJSON(w, http.StatusOK, resp)
}
