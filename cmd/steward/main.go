// Steward Core - Vessel Hospitality Platform
//
// This is the main entry point for the steward core application. It
// ingests device events from the MQTT bus, derives guest intent, runs
// the service-request lifecycle, and fans results out to crew
// wearables and operator consoles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/saltline/steward-core/migrations"

	"github.com/saltline/steward-core/internal/activity"
	"github.com/saltline/steward-core/internal/api"
	"github.com/saltline/steward-core/internal/bus"
	"github.com/saltline/steward-core/internal/device"
	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/infrastructure/config"
	"github.com/saltline/steward-core/internal/infrastructure/database"
	"github.com/saltline/steward-core/internal/infrastructure/influxdb"
	"github.com/saltline/steward-core/internal/infrastructure/logging"
	"github.com/saltline/steward-core/internal/infrastructure/mqtt"
	"github.com/saltline/steward-core/internal/notify"
	"github.com/saltline/steward-core/internal/request"
	"github.com/saltline/steward-core/internal/tasks"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Context that cancels on interrupt signals (Ctrl+C, SIGTERM).
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Steward Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "vessel", cfg.Vessel.Name)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
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
	log.Info("database migrations complete", "path", cfg.Database.Path)

	// Repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	dirRepo := directory.NewSQLiteRepository(db.DB)
	requestRepo := request.NewSQLiteRepository(db.DB)
	activityRepo := activity.NewSQLiteRepository(db.DB)

	// Device registry with warm cache
	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised")

	// Request lifecycle manager
	manager := request.NewManager(requestRepo, dirRepo)
	manager.SetLogger(log)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Background task runner for fan-out work
	runner := tasks.NewRunner(cfg.Tasks.Workers, cfg.Tasks.QueueSize)
	runner.SetLogger(log)
	runner.Start(ctx)
	defer func() {
		log.Info("stopping task runner", "dropped", runner.Dropped())
		if closeErr := runner.Close(); closeErr != nil {
			log.Error("error closing task runner", "error", closeErr)
		}
	}()

	// Notification router for wearables and service topics
	router := notify.NewRouter(registry, dirRepo, mqttClient)
	router.SetLogger(log)

	// WebSocket hub shared by the API server and the bus adapter
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Wire request transitions into fan-out: notifications, console
	// broadcasts, activity trail, telemetry.
	wireTransitions(manager, router, hub, activityRepo, influxClient, runner, log)

	// Pairing windows and press dedupe are shared between the API
	// server (opens windows) and the bus adapter (consumes them).
	pairing := device.NewPairingTracker(0)

	adapterOpts := bus.Options{
		Hub:     hub,
		Runner:  runner,
		Pairing: pairing,
		Deduper: bus.NewDeduper(0),
		Logger:  log,
	}
	if influxClient != nil {
		adapterOpts.Metrics = influxClient
	}
	adapter := bus.NewAdapter(mqttClient, mqttClient, registry, dirRepo, manager, adapterOpts)
	if err := adapter.Start(ctx); err != nil {
		return fmt.Errorf("starting bus adapter: %w", err)
	}

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		Directory:   dirRepo,
		Requests:    manager,
		Activity:    activityRepo,
		Pairing:     pairing,
		Commands:    adapter,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// wireTransitions registers the lifecycle hooks that fan a transition
// out to crew wearables, consoles, the activity trail, and telemetry.
// All side effects run on the task runner so transitions never block.
func wireTransitions(
	manager *request.Manager,
	router *notify.Router,
	hub *api.Hub,
	activityRepo activity.Repository,
	influxClient *influxdb.Client,
	runner *tasks.Runner,
	log *logging.Logger,
) {
	manager.OnTransition(func(req *request.Request, action request.Action) {
		// Wearable notifications, origin acknowledgements, service topics.
		runner.Submit("notify-fanout", func(ctx context.Context) {
			router.HandleTransition(ctx, req, action)
		})

		// Console broadcast.
		event := "request_updated"
		if action == request.ActionCreated {
			event = "request_created"
		}
		hub.Broadcast(event, req)

		// Durable activity trail.
		runner.Submit("activity-log", func(ctx context.Context) {
			entry := &activity.Entry{
				Action:     string(action),
				EntityType: activity.EntityRequest,
				EntityID:   req.ID,
				Source:     activity.SourceSystem,
				Details: map[string]any{
					"category": string(req.Category),
					"priority": string(req.Priority),
					"status":   string(req.Status),
				},
			}
			if req.AssignedCrewID != nil {
				entry.CrewID = *req.AssignedCrewID
			}
			if err := activityRepo.Create(ctx, entry); err != nil {
				log.Warn("activity log write failed", "request_id", req.ID, "error", err)
			}
		})

		// Telemetry analytics.
		if influxClient != nil {
			runner.Submit("request-telemetry", func(context.Context) {
				influxClient.WriteRequestEvent(req.ID, string(req.Category), string(req.Priority), string(req.Status))

				if action == request.ActionCompleted && req.AcceptedAt != nil && req.CompletedAt != nil {
					response, completion := requestTimings(req)
					influxClient.WriteRequestTiming(req.ID, string(req.Category), string(req.Priority), response, completion)
				}
			})
		}
	})
}

// requestTimings returns the analytics durations for a completed
// request, in seconds. Response time runs from creation to acceptance,
// completion time from acceptance to completion. Both timestamps must
// be set by the caller.
func requestTimings(req *request.Request) (response, completion float64) {
	response = req.AcceptedAt.Sub(req.CreatedAt).Seconds()
	completion = req.CompletedAt.Sub(*req.AcceptedAt).Seconds()
	return response, completion
}

// getConfigPath returns the configuration file path.
// Uses STEWARD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STEWARD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
