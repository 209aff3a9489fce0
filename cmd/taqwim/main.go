package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"taqwim/internal/auth"
	"taqwim/internal/calendar"
	"taqwim/internal/config"
	"taqwim/internal/database"
	"taqwim/internal/geocode"
	"taqwim/internal/logging"
	"taqwim/internal/prayer"
	"taqwim/internal/server"
	"taqwim/internal/source"
	"taqwim/internal/store"
	"taqwim/internal/timeutil"
	"taqwim/internal/websocket"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	dbFlag := flag.String("db", "", "sqlite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.Listen = *listenFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	localEvents := store.NewLocalEventStore(db)
	locations := store.NewLocationStore(db)
	creds := store.NewCredentialStore(db)
	prayerTimes := store.NewPrayerTimeStore(db)

	hub := websocket.NewHub(logger.With("component", "websocket"))

	// Local calendar starts undetermined; the config answers the access
	// prompt at startup.
	local := source.NewLocal(localEvents, source.AuthNotDetermined, func(ctx context.Context) (bool, error) {
		return cfg.GrantLocalCalendar, nil
	})
	if status, err := local.RequestAccess(context.Background()); err != nil {
		logger.Warn("local calendar access request failed", "error", err)
	} else {
		logger.Info("local calendar access", "status", status.String())
	}

	manager := auth.NewManager(auth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		Passphrase:   cfg.Google.Passphrase,
	}, creds, logger.With("component", "auth"))

	var curCfg atomic.Pointer[config.Config]
	curCfg.Store(cfg)

	google := source.NewGoogle(manager, "", loc)
	buildSources := func(c *config.Config) []source.Source {
		sources := []source.Source{local, google}
		for _, feed := range c.ICS {
			sources = append(sources, source.NewICS(feed.Name, feed.URL, loc))
		}
		return sources
	}

	agg := calendar.New(buildSources(cfg), logger.With("component", "calendar"),
		calendar.WithNotify(func(count int) {
			hub.Broadcast(websocket.EventsRefreshed(count, time.Now()))
		}),
	)

	prayerSvc := prayer.NewService(prayerTimes, prayer.NewClient(""), loc, logger.With("component", "prayer"))

	srv := server.New(server.Deps{
		Aggregator:  agg,
		PrayerSvc:   prayerSvc,
		LocalSource: local,
		AuthManager: manager,
		Geocoder:    geocode.NewClient(""),
		Locations:   locations,
		LocalEvents: localEvents,
		Hub:         hub,
		Logger:      logger,
		DefaultMethod: func() prayer.Method {
			if m, err := prayer.ParseMethod(curCfg.Load().PrayerMethod); err == nil {
				return m
			}
			return prayer.DefaultMethod
		},
	})

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := agg.Refresh(ctx); err != nil {
			logger.Warn("calendar refresh failed", "error", err)
		}
	}

	prewarm := func() {
		stored, err := locations.Get()
		if err != nil || stored == nil {
			return
		}
		method, err := prayer.ParseMethod(stored.CalculationMethod)
		if err != nil {
			logger.Warn("stored calculation method invalid", "method", stored.CalculationMethod)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for offset := 0; offset < 2; offset++ {
			day := timeutil.AddDays(time.Now(), offset)
			if _, err := prayerSvc.ForDate(ctx, day, stored.Latitude, stored.Longitude, method); err != nil {
				logger.Warn("prayer prewarm failed", "day", day.Format("2006-01-02"), "error", err)
				return
			}
		}
		hub.Broadcast(websocket.PrayersUpdated(time.Now().In(loc).Format("2006-01-02")))
	}

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(cfg.RefreshCron, refresh); err != nil {
		logger.Error("invalid refresh schedule", "cron", cfg.RefreshCron, "error", err)
		os.Exit(1)
	}
	if _, err := sched.AddFunc(cfg.PrewarmCron, prewarm); err != nil {
		logger.Error("invalid prewarm schedule", "cron", cfg.PrewarmCron, "error", err)
		os.Exit(1)
	}
	sched.Start()

	// Reload picks up feed and method edits live. Listen address, database
	// path, and cron schedules still need a restart.
	watcher, err := config.NewWatcher(*configPath, func() {
		reloaded, err := config.Load(*configPath)
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			return
		}
		curCfg.Store(reloaded)
		agg.SetSources(buildSources(reloaded))
		logger.Info("config reloaded", "ics_feeds", len(reloaded.ICS))
		go refresh()
	}, logger.With("component", "config"))
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	go refresh()
	go prewarm()

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("taqwim listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
