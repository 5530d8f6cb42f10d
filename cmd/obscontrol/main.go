// OBS Multi-Instance Controller
//
// This is the main entry point for the controller. It supervises one
// OBS Studio instance per court: launching the processes, watching
// their obs-websocket endpoints, restarting crashed instances and
// exposing control over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Marthi0/OBS-Multi-Instance-Controller/migrations"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/api"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/history"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/config"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/database"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/influxdb"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/logging"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/mqtt"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/mqttbridge"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so errors
// map onto exit codes in one place.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting OBS controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "courts", len(cfg.Courts))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the event history database and bring the schema up to date.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Event history: every supervisor event is persisted.
	historyRepo := history.NewSQLiteRepository(db.DB)
	historyRecorder := history.NewRecorder(historyRepo)
	historyRecorder.SetLogger(log)

	// Retention sweep keeps the event table bounded.
	if cfg.Database.RetentionDays > 0 {
		retention := time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour
		pruner := history.NewPruner(historyRepo, retention, 0)
		pruner.SetLogger(log)
		pruner.Start()
		defer pruner.Stop()
	} else {
		log.Info("history pruning disabled")
	}

	// The supervisor owns one launcher, OBS client and watchdog per court.
	sup := supervisor.New(cfg, log)
	sup.Subscribe(historyRecorder.Handle)

	// MQTT bridge (optional): remote command and status surface.
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := mqttbridge.New(sup, mqttClient)
		bridge.SetLogger(log)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		sup.Subscribe(bridge.HandleEvent)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional): periodic status samples plus
	// per-event points.
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		telemetryRecorder := telemetry.NewRecorder(sup, influxClient, 0)
		telemetryRecorder.SetLogger(log)
		telemetryRecorder.Start()
		defer telemetryRecorder.Stop()
		sup.Subscribe(telemetryRecorder.HandleEvent)
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP API and WebSocket event feed.
	apiServer, err := api.New(api.Deps{
		Config:     cfg,
		Logger:     log,
		Controller: sup,
		History:    historyRepo,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	sup.Subscribe(func(ev supervisor.Event) {
		if hub := apiServer.Hub(); hub != nil {
			hub.BroadcastEvent(ev)
		}
	})

	// Launch every court and start the watchdogs. StopAll is deferred
	// last so shutdown events still reach the history store, MQTT and
	// telemetry before those connections close.
	sup.StartAll()
	defer func() {
		log.Info("stopping all courts")
		sup.StopAll()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OBSCONTROL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OBSCONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
