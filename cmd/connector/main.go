// Fleet Connector - MQTT device fleet bridge
//
// This is the main entry point for the fleet connector. The connector
// receives a declarative fleet configuration over MQTT, instantiates the
// matching device drivers, routes inbound command messages to them, and
// republishes device entity state together with home-automation discovery
// metadata.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hausbridge/fleet-connector/internal/driver"
	"github.com/hausbridge/fleet-connector/internal/drivers/virtual"
	"github.com/hausbridge/fleet-connector/internal/fleet"
	"github.com/hausbridge/fleet-connector/internal/history"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/config"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/database"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/logging"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/metrics"
	"github.com/hausbridge/fleet-connector/internal/infrastructure/mqtt"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting fleet connector",
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

	// Open the entity state journal (optional)
	var historyRepo *history.Repository
	if cfg.History.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening history database: %w", openErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		historyRepo = history.NewRepository(db)
		log.Info("history database ready", "path", cfg.History.Path)
	} else {
		log.Info("history disabled")
	}

	// Connect to InfluxDB (optional)
	var metricsClient *metrics.Client
	if cfg.Metrics.Enabled {
		metricsClient, err = metrics.Connect(cfg.Metrics)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := metricsClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		metricsClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)
	} else {
		log.Info("metrics disabled")
	}

	// Connect to the MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Register the built-in drivers
	registry := driver.NewRegistry()
	if err := virtual.Register(registry); err != nil {
		return fmt.Errorf("registering drivers: %w", err)
	}
	log.Info("drivers registered", "classes", registry.Classes())

	// Start the fleet reconciler; every configuration message on the
	// config topic replaces the running fleet from here on.
	reconciler := fleet.New(mqttClient, registry, log.With("component", "fleet"))
	if historyRepo != nil {
		reconciler.SetHistory(historyRepo)
	}
	if metricsClient != nil {
		reconciler.SetMetrics(metricsClient)
	}
	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("starting fleet reconciler: %w", err)
	}
	defer reconciler.Shutdown(context.Background())
	log.Info("fleet reconciler started")

	// Seed the fleet configuration from a local file, if present. The file
	// is republished verbatim and retained so the broker replays it to us
	// and to any future connector instance.
	if err := publishSeedConfig(mqttClient, cfg.Fleet.SeedFile, log); err != nil {
		return fmt.Errorf("publishing seed config: %w", err)
	}

	if err := healthCheck(ctx, mqttClient, metricsClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Fleet reconciler (disconnects devices)
	// 2. MQTT
	// 3. InfluxDB (if enabled)
	// 4. History database (if enabled)

	log.Info("fleet connector stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CONNECTOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CONNECTOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// publishSeedConfig republishes a local fleet configuration file to the
// config topic. A missing path or file is not an error; the connector then
// waits for a configuration from the broker.
func publishSeedConfig(client *mqtt.Client, path string, log *logging.Logger) error {
	if path == "" {
		return nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no seed fleet config present", "path", path)
			return nil
		}
		return fmt.Errorf("reading seed file: %w", err)
	}

	topic := mqtt.Topics{}.Config()
	if err := client.PublishRetained(topic, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	log.Info("seed fleet config published", "path", path, "bytes", len(payload))
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - metricsClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, metricsClient *metrics.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if metricsClient != nil {
		if err := metricsClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
