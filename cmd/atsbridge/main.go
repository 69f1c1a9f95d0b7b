// ATS Bridge - Aritech alarm panel gateway
//
// This is the main entry point for the ATS bridge daemon. It maintains a
// supervised session to an Aritech ATS alarm panel (or the built-in
// simulator), mirrors panel state onto MQTT, and serves a REST/WebSocket
// API for local consumers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebakerckhof/ats-bridge/internal/api"
	"github.com/sebakerckhof/ats-bridge/internal/ats"
	"github.com/sebakerckhof/ats-bridge/internal/bridge"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/config"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/logging"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/mqtt"
	"github.com/sebakerckhof/ats-bridge/internal/panel"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting ATS bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Build the panel session factory
	clients, err := clientFactory(cfg.Panel)
	if err != nil {
		return fmt.Errorf("configuring panel client: %w", err)
	}

	// Create the panel coordinator
	coord, err := panel.New(panel.Options{
		Clients:         clients,
		Logger:          log,
		ReconnectDelays: cfg.ReconnectDelays(),
		MaxFastAttempts: cfg.Panel.Reconnect.MaxFastAttempts,
	})
	if err != nil {
		return fmt.Errorf("creating panel coordinator: %w", err)
	}
	defer func() {
		log.Info("closing panel coordinator")
		if closeErr := coord.Close(); closeErr != nil {
			log.Error("error closing panel coordinator", "error", closeErr)
		}
	}()

	// Apply configured force-arm preferences before the first arm command
	for _, area := range cfg.Panel.ForceArm {
		coord.SetForceArm(area, true)
	}

	// Open the panel session. Connection losses after this point are
	// handled by the coordinator's reconnection loop; only the initial
	// connection failure is fatal.
	if err := coord.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to panel: %w", err)
	}
	info := coord.PanelInfo()
	log.Info("panel connected",
		"mode", cfg.Panel.Mode,
		"model", info.Model,
		"name", info.Name,
	)

	// Connect to MQTT broker and start the state mirror (if enabled)
	if cfg.MQTT.Enabled {
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

		mqttBridge, err := bridge.New(bridge.Options{
			Coordinator: coord,
			MQTT:        mqttClient,
			QoS:         byte(cfg.MQTT.QoS),
			Logger:      log,
		})
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
		if err := mqttBridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Start the REST/WebSocket API server (if enabled)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Coordinator: coord,
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (if enabled)
	// 2. MQTT bridge + client (if enabled)
	// 3. Panel coordinator

	log.Info("ATS bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ATSBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ATSBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// clientFactory builds the session factory for the configured panel mode.
//
// Simulator mode shares one simulator across sessions so panel state
// survives reconnects the way a real panel's would. The hardware session
// driver is provided as a separate build and plugs in through the
// ats.Client interface.
func clientFactory(cfg config.PanelConfig) (panel.ClientFactory, error) {
	switch cfg.Mode {
	case "simulator":
		sim := ats.NewSimulator(ats.SimulatorConfig{
			Areas:    cfg.Simulator.Areas,
			Zones:    cfg.Simulator.Zones,
			Outputs:  cfg.Simulator.Outputs,
			Triggers: cfg.Simulator.Triggers,
		})
		return func() ats.Client { return sim }, nil
	case "ats":
		return nil, fmt.Errorf("panel mode %q requires the hardware session driver, which is not bundled in this build", cfg.Mode)
	default:
		return nil, fmt.Errorf("unknown panel mode %q", cfg.Mode)
	}
}
