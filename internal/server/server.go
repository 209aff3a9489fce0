// Package server assembles the REST API, websocket endpoint, and their
// dependencies into one http.Handler.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"taqwim/internal/auth"
	"taqwim/internal/calendar"
	"taqwim/internal/handler"
	"taqwim/internal/prayer"
	"taqwim/internal/source"
	"taqwim/internal/store"
	"taqwim/internal/websocket"
)

// Deps are the long-lived collaborators the HTTP layer serves.
type Deps struct {
	Aggregator  *calendar.Aggregator
	PrayerSvc   *prayer.Service
	LocalSource *source.Local
	AuthManager *auth.Manager
	Geocoder    handler.Geocoder
	Locations   *store.LocationStore
	LocalEvents *store.LocalEventStore
	Hub         *websocket.Hub
	Logger      *slog.Logger

	// DefaultMethod supplies the calculation method used when a location
	// update omits one. Optional; nil means the package default.
	DefaultMethod func() prayer.Method
}

type Server struct {
	eventH    *handler.EventHandler
	prayerH   *handler.PrayerHandler
	locationH *handler.LocationHandler
	googleH   *handler.GoogleHandler
	statusH   *handler.StatusHandler
	hub       *websocket.Hub
	logger    *slog.Logger
}

func New(d Deps) *Server {
	return &Server{
		eventH:    handler.NewEventHandler(d.Aggregator, d.LocalEvents, d.Hub, d.Logger.With("component", "events")),
		prayerH:   handler.NewPrayerHandler(d.PrayerSvc, d.Locations, d.Logger.With("component", "prayers")),
		locationH: handler.NewLocationHandler(d.Locations, d.Geocoder, d.Hub, d.DefaultMethod, d.Logger.With("component", "location")),
		googleH:   handler.NewGoogleHandler(d.AuthManager, d.Logger.With("component", "google")),
		statusH:   handler.NewStatusHandler(d.Aggregator, d.LocalSource, d.AuthManager, d.Locations, d.Hub, d.Logger.With("component", "status")),
		hub:       d.Hub,
		logger:    d.Logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.eventH.List)
		r.Post("/events", s.eventH.Create)
		r.Delete("/events/{id}", s.eventH.Delete)
		r.Post("/events/refresh", s.eventH.Refresh)

		r.Get("/prayers/today", s.prayerH.Today)
		r.Get("/prayers/week", s.prayerH.Week)
		r.Get("/prayers/next", s.prayerH.Next)

		r.Get("/location", s.locationH.Get)
		r.Put("/location", s.locationH.Update)

		r.Post("/google/connect", s.googleH.Connect)
		r.Delete("/google/connect", s.googleH.Disconnect)

		r.Get("/status", s.statusH.Get)
	})

	r.Get("/ws", websocket.Handler(s.hub, s.logger.With("component", "websocket")))

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
