package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"taqwim/internal/geocode"
	"taqwim/internal/model"
	"taqwim/internal/prayer"
	"taqwim/internal/store"
	"taqwim/internal/websocket"
)

// Geocoder resolves coordinates to a place name. Failures here degrade to
// bare coordinates, never to a failed request.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Place, error)
}

type LocationHandler struct {
	location      *store.LocationStore
	geocoder      Geocoder
	hub           *websocket.Hub
	defaultMethod func() prayer.Method
	logger        *slog.Logger
}

// NewLocationHandler creates the location handler. defaultMethod supplies the
// calculation method for requests that omit one (the configured default,
// which can change under a config reload); nil falls back to the package
// default.
func NewLocationHandler(location *store.LocationStore, geocoder Geocoder, hub *websocket.Hub, defaultMethod func() prayer.Method, logger *slog.Logger) *LocationHandler {
	if defaultMethod == nil {
		defaultMethod = func() prayer.Method { return prayer.DefaultMethod }
	}
	return &LocationHandler{location: location, geocoder: geocoder, hub: hub, defaultMethod: defaultMethod, logger: logger}
}

// Get returns the stored location, or 404 when none is set.
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.location.Get()
	if err != nil {
		h.logger.Error("read location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read location")
		return
	}
	if loc == nil {
		writeError(w, http.StatusNotFound, "no location set")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type updateLocationRequest struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	CalculationMethod string  `json:"calculation_method"`
}

// Update replaces the stored location and reverse-geocodes a display name
// for it. The geocode is best-effort.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		writeError(w, http.StatusBadRequest, "latitude must be within [-90, 90]")
		return
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "longitude must be within [-180, 180]")
		return
	}

	method := h.defaultMethod()
	if req.CalculationMethod != "" {
		parsed, err := prayer.ParseMethod(req.CalculationMethod)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		method = parsed
	}

	loc := &model.UserLocation{
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		CalculationMethod: string(method),
	}

	if h.geocoder != nil {
		if place, err := h.geocoder.Reverse(r.Context(), req.Latitude, req.Longitude); err != nil {
			h.logger.Warn("reverse geocode failed", "error", err)
		} else {
			loc.City = place.City
			loc.Country = place.Country
		}
	}

	if err := h.location.Set(loc); err != nil {
		h.logger.Error("store location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store location")
		return
	}

	h.hub.Broadcast(websocket.LocationUpdated(loc.City))
	h.logger.Info("location updated",
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
		"city", loc.City,
		"method", loc.CalculationMethod,
	)

	writeJSON(w, http.StatusOK, loc)
}
