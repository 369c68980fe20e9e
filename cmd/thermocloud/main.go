// ThermoCloud Core - multi-tenant thermometer registry.
//
// This is the main entry point for the ThermoCloud registry service. It
// exposes thermometer lifecycle and temperature reading APIs over HTTP,
// broadcasts domain events over WebSocket and MQTT, and optionally
// mirrors readings into InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/thermocloud/core/migrations"

	"github.com/thermocloud/core/internal/api"
	"github.com/thermocloud/core/internal/auth"
	"github.com/thermocloud/core/internal/infrastructure/config"
	"github.com/thermocloud/core/internal/infrastructure/database"
	"github.com/thermocloud/core/internal/infrastructure/logging"
	"github.com/thermocloud/core/internal/infrastructure/mqtt"
	"github.com/thermocloud/core/internal/infrastructure/tsdb"
	"github.com/thermocloud/core/internal/thermo"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ThermoCloud Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Seed the initial staff account on first boot
	userRepo := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedStaff(ctx, userRepo,
		cfg.Security.Bootstrap.AdminUsername,
		cfg.Security.Bootstrap.AdminPassword,
		log.Logger,
	); seedErr != nil {
		return fmt.Errorf("seeding staff account: %w", seedErr)
	}

	// Domain services
	thermoRepo := thermo.NewSQLiteRepository(db.DB)
	policy := thermo.Policy{}
	thermometers := thermo.NewThermometerService(thermoRepo, policy)
	thermometers.SetLogger(log)
	readings := thermo.NewReadingService(thermoRepo, policy)

	// Event sinks: WebSocket hub always, MQTT when enabled
	sinks := make([]thermo.EventSink, 0, 2)

	// Connect to the MQTT broker (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(disconnectErr error) {
			log.Warn("MQTT disconnected", "error", disconnectErr)
		})

		// #nosec G115 -- QoS validated to 0-2 at config load
		eventSink := mqtt.NewEventSink(mqttClient, byte(cfg.MQTT.QoS))
		eventSink.SetOnError(func(event string, sinkErr error) {
			log.Error("MQTT event publish failed", "event", event, "error", sinkErr)
		})
		sinks = append(sinks, eventSink)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional reading mirror)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := tsdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
		thermometers.SetRecorder(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Users:        userRepo,
		Thermometers: thermometers,
		Readings:     readings,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// The hub is one of the event sinks, so wire it before Start
	sinks = append(sinks, server.Hub())
	thermometers.SetEventSink(thermo.MultiSink(sinks...))

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path from the environment
// or the default.
func getConfigPath() string {
	if path := os.Getenv("THERMOCLOUD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
