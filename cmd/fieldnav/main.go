package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fieldnav/internal/api"
	"fieldnav/pkg/config"
	"fieldnav/pkg/db"
	"fieldnav/pkg/gps"
	"fieldnav/pkg/logging"
	"fieldnav/pkg/model"
	"fieldnav/pkg/nav"
	"fieldnav/pkg/probe"
	"fieldnav/pkg/publish"
	"fieldnav/pkg/store"
	"fieldnav/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault("configs/fieldnav.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/fieldnav.yaml")
		return
	}

	if err := run(context.Background(), "configs/fieldnav.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Local overrides (serial port, broker credentials); absence is fine.
	_ = godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("FieldNav started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	core := nav.New(nav.Config{
		MaxAccuracyM: appCfg.Nav.MaxAccuracyM,
		AlertRadiusM: appCfg.Nav.AlertRadiusM,
		HistorySize:  appCfg.Nav.HistorySize,
	})
	restoreState(ctx, core, st)

	source, err := buildSource(appCfg)
	if err != nil {
		return err
	}

	probes := []probe.Probe{
		{
			Name:     "Database",
			Check:    func(ctx context.Context) error { return dbConn.PingContext(ctx) },
			Critical: true,
		},
		{
			Name: "Web assets",
			Check: func(context.Context) error {
				_, err := os.Stat(filepath.Join("web", "index.html"))
				return err
			},
		},
	}
	if err := probe.Analyze(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	var pub *publish.MQTTPublisher
	if appCfg.MQTT.Enabled {
		pub, err = publish.NewMQTT(appCfg.MQTT)
		if err != nil {
			slog.Error("MQTT publisher unavailable, continuing without it", "error", err)
		} else {
			defer pub.Close()
		}
	}

	stateH := api.NewStateHandler(core)
	hub := api.NewHub()
	defer hub.Close()

	var lastFix atomic.Int64
	lastFix.Store(time.Now().UnixNano())

	emit := func(fix model.GeoFix) {
		lastFix.Store(time.Now().UnixNano())

		state, alert := core.IngestFix(fix)
		stateH.Update(state, alert)
		hub.Broadcast(stateH.Snapshot())

		if core.Tracking() {
			p := model.TrackPoint{Lat: fix.Lat, Lon: fix.Lon}
			if err := st.AppendTrackPoint(ctx, p); err != nil {
				slog.Error("track point persist failed", "error", err)
			}
		}
		if pub != nil {
			pub.Publish(state)
		}
	}

	go func() {
		if err := source.Run(ctx, emit); err != nil && ctx.Err() == nil {
			slog.Error("position source stopped", "error", err)
		}
	}()
	go watchFixes(ctx, &lastFix, appCfg.GPS.FixTimeout.AsDuration())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(appCfg.Server.Address, "web",
		stateH,
		api.NewWaypointHandler(core, st),
		api.NewNavigateHandler(core, st),
		hub,
		shutdownFunc,
	)
	return runServerLifecycle(ctx, srv, quit)
}

// restoreState reloads the persisted waypoint collection, track and
// active target so a restart picks up where the last session stopped.
func restoreState(ctx context.Context, core *nav.Core, st store.Store) {
	wps, err := st.ListWaypoints(ctx)
	if err != nil {
		slog.Error("failed to load waypoints", "error", err)
	} else if len(wps) > 0 {
		core.ImportWaypoints(wps)
		slog.Info("Waypoints restored", "count", len(wps))
	}

	track, err := st.ListTrack(ctx)
	if err != nil {
		slog.Error("failed to load track", "error", err)
	} else if len(track) > 0 {
		core.ReplaceTrack(track)
		slog.Info("Track restored", "points", len(track))
	}

	if raw, ok := st.GetState(ctx, "target"); ok {
		var target model.NavigationTarget
		if err := json.Unmarshal([]byte(raw), &target); err != nil {
			slog.Warn("Discarding unreadable persisted target", "error", err)
		} else {
			core.SetTarget(target)
			slog.Info("Navigation target restored", "label", target.Label)
		}
	}

	if raw, ok := st.GetState(ctx, api.StateKeySettings); ok {
		var s api.SettingsResponse
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			slog.Warn("Discarding unreadable persisted settings", "error", err)
		} else {
			core.UpdateSettings(s.MaxAccuracyM, s.AlertRadiusM)
			slog.Info("Settings restored", "max_accuracy_m", s.MaxAccuracyM, "alert_radius_m", s.AlertRadiusM)
		}
	}
}

func buildSource(cfg *config.Config) (gps.Source, error) {
	switch cfg.GPS.Provider {
	case "serial":
		return &gps.SerialSource{
			Port: cfg.GPS.Serial.Port,
			Baud: cfg.GPS.Serial.Baud,
		}, nil
	case "tcp":
		return &gps.TCPSource{Address: cfg.GPS.TCP.Address}, nil
	case "mock":
		return &gps.MockSource{
			StartLat:   cfg.GPS.Mock.StartLat,
			StartLon:   cfg.GPS.Mock.StartLon,
			SpeedKmh:   cfg.GPS.Mock.SpeedKmh,
			HeadingDeg: cfg.GPS.Mock.HeadingDeg,
			Interval:   cfg.GPS.Mock.Interval.AsDuration(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown gps provider %q", cfg.GPS.Provider)
	}
}

// watchFixes logs when the position source has gone quiet. A silent
// provider is a degraded-but-valid state, not an error.
func watchFixes(ctx context.Context, lastFix *atomic.Int64, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	ticker := time.NewTicker(timeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			age := time.Since(time.Unix(0, lastFix.Load()))
			if age > timeout {
				slog.Warn("No position fix received", "since", age.Round(time.Second))
			}
		}
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
