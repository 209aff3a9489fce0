package handler

import (
	"log/slog"
	"net/http"
	"time"

	"taqwim/internal/prayer"
	"taqwim/internal/store"
)

const dayFormat = "2006-01-02"

type PrayerHandler struct {
	svc      *prayer.Service
	location *store.LocationStore
	logger   *slog.Logger
}

func NewPrayerHandler(svc *prayer.Service, location *store.LocationStore, logger *slog.Logger) *PrayerHandler {
	return &PrayerHandler{svc: svc, location: location, logger: logger}
}

// activeLocation loads the stored location, writing the failure response
// itself when none is set.
func (h *PrayerHandler) activeLocation(w http.ResponseWriter) (lat, lon float64, method prayer.Method, ok bool) {
	loc, err := h.location.Get()
	if err != nil {
		h.logger.Error("read location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read location")
		return 0, 0, "", false
	}
	if loc == nil {
		writeError(w, http.StatusConflict, "no location set; PUT /api/location first")
		return 0, 0, "", false
	}

	method, err = prayer.ParseMethod(loc.CalculationMethod)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored calculation method is invalid")
		return 0, 0, "", false
	}
	return loc.Latitude, loc.Longitude, method, true
}

// Today returns the prayer times for today, or for ?date=YYYY-MM-DD.
func (h *PrayerHandler) Today(w http.ResponseWriter, r *http.Request) {
	lat, lon, method, ok := h.activeLocation(w)
	if !ok {
		return
	}

	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation(dayFormat, v, h.svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	times, err := h.svc.ForDate(r.Context(), date, lat, lon, method)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, times)
}

// Week returns seven days starting today, or at ?start=YYYY-MM-DD.
func (h *PrayerHandler) Week(w http.ResponseWriter, r *http.Request) {
	lat, lon, method, ok := h.activeLocation(w)
	if !ok {
		return
	}

	start := time.Now()
	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.ParseInLocation(dayFormat, v, h.svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start = parsed
	}

	week, err := h.svc.ForWeek(r.Context(), start, lat, lon, method)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": week})
}

// Next returns the next upcoming prayer, rolling over to tomorrow's Fajr
// after Isha.
func (h *PrayerHandler) Next(w http.ResponseWriter, r *http.Request) {
	lat, lon, method, ok := h.activeLocation(w)
	if !ok {
		return
	}

	next, err := h.svc.Next(r.Context(), time.Now(), lat, lon, method)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    next.Name,
		"time":    next.Time,
		"display": next.Time.In(h.svc.Location()).Format("3:04 PM"),
	})
}
