package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ATS bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Panel     PanelConfig     `yaml:"panel"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PanelConfig contains the alarm panel connection settings.
type PanelConfig struct {
	// Mode selects the session driver: "ats" for a real panel, "simulator"
	// for the built-in in-memory panel.
	Mode string `yaml:"mode"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// PIN is the user code used to log in to the panel.
	PIN string `yaml:"pin"`

	// EncryptionKey is the panel's session encryption key, hex encoded.
	EncryptionKey string `yaml:"encryption_key"`

	// ForceArm lists area numbers that arm with the force flag set,
	// bypassing the panel's not-ready refusal for open zones.
	ForceArm []int `yaml:"force_arm"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ReconnectConfig contains panel reconnection settings.
type ReconnectConfig struct {
	// Delays is the backoff schedule in seconds. The last entry repeats
	// once the schedule is exhausted.
	Delays []int `yaml:"delays"`

	// MaxFastAttempts is the attempt count after which the bridge logs
	// that it is continuing at the maximum delay. Retrying never stops.
	MaxFastAttempts int `yaml:"max_fast_attempts"`
}

// SimulatorConfig sizes the simulated panel used in simulator mode.
type SimulatorConfig struct {
	Areas    int `yaml:"areas"`
	Zones    int `yaml:"zones"`
	Outputs  int `yaml:"outputs"`
	Triggers int `yaml:"triggers"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ATSBRIDGE_SECTION_KEY
// For example: ATSBRIDGE_PANEL_HOST, ATSBRIDGE_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Panel: PanelConfig{
			Mode: "ats",
			Port: 3001,
			Reconnect: ReconnectConfig{
				Delays:          []int{5, 10, 20, 40, 60, 120},
				MaxFastAttempts: 20,
			},
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "atsbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ATSBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Panel
	if v := os.Getenv("ATSBRIDGE_PANEL_MODE"); v != "" {
		cfg.Panel.Mode = v
	}
	if v := os.Getenv("ATSBRIDGE_PANEL_HOST"); v != "" {
		cfg.Panel.Host = v
	}
	if v := os.Getenv("ATSBRIDGE_PANEL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Panel.Port = port
		}
	}
	if v := os.Getenv("ATSBRIDGE_PANEL_PIN"); v != "" {
		cfg.Panel.PIN = v
	}
	if v := os.Getenv("ATSBRIDGE_PANEL_ENCRYPTION_KEY"); v != "" {
		cfg.Panel.EncryptionKey = v
	}

	// MQTT
	if v := os.Getenv("ATSBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ATSBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ATSBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ATSBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Panel validation
	switch c.Panel.Mode {
	case "ats":
		if c.Panel.Host == "" {
			errs = append(errs, "panel.host is required in ats mode")
		}
		if c.Panel.PIN == "" {
			errs = append(errs, "panel.pin is required in ats mode (set ATSBRIDGE_PANEL_PIN environment variable)")
		}
	case "simulator":
		// Simulator needs no connection details.
	default:
		errs = append(errs, "panel.mode must be \"ats\" or \"simulator\"")
	}
	if c.Panel.Port < 1 || c.Panel.Port > 65535 {
		errs = append(errs, "panel.port must be between 1 and 65535")
	}
	if len(c.Panel.Reconnect.Delays) == 0 {
		errs = append(errs, "panel.reconnect.delays must have at least one entry")
	}
	for _, d := range c.Panel.Reconnect.Delays {
		if d <= 0 {
			errs = append(errs, "panel.reconnect.delays entries must be positive")
			break
		}
	}
	if c.Panel.Reconnect.MaxFastAttempts < 1 {
		errs = append(errs, "panel.reconnect.max_fast_attempts must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReconnectDelays returns the panel backoff schedule as Durations.
func (c *Config) ReconnectDelays() []time.Duration {
	out := make([]time.Duration, len(c.Panel.Reconnect.Delays))
	for i, d := range c.Panel.Reconnect.Delays {
		out[i] = time.Duration(d) * time.Second
	}
	return out
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
