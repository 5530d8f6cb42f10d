package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the OBS Multi Instance
// Controller. All configuration is loaded from YAML and can be overridden
// by environment variables.
type Config struct {
	OBS      OBSConfig      `yaml:"obs"`
	Courts   []CourtConfig  `yaml:"courts"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OBSConfig contains settings shared by every supervised OBS instance.
type OBSConfig struct {
	// ExecutablePath is the path to the OBS Studio binary.
	ExecutablePath string `yaml:"executable_path"`
}

// CourtConfig describes one supervised court: an OBS instance plus its
// WebSocket control endpoint.
type CourtConfig struct {
	// Name is the unique display name for the court (e.g. "Court 1").
	Name string `yaml:"name"`

	// WebSocketPort is the obs-websocket server port for this instance.
	WebSocketPort int `yaml:"websocket_port"`

	// WebSocketPassword authenticates against the obs-websocket server.
	WebSocketPassword string `yaml:"websocket_password"`

	// ProfileName selects the OBS profile launched for this court.
	ProfileName string `yaml:"profile_name"`
}

// WatchdogConfig contains the global health-check tunables.
type WatchdogConfig struct {
	// CheckInterval is the seconds between health checks.
	CheckInterval int `yaml:"check_interval"`

	// RestartDelay is the seconds to wait before reacting to a disconnect.
	RestartDelay int `yaml:"restart_delay"`
}

// DatabaseConfig contains SQLite event-history settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long court events are kept before the
	// periodic sweep deletes them. Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`
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
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stdout or stderr
}

// Load reads, overrides, and validates configuration from a YAML file.
//
// The load order is: defaults, YAML file, environment overrides, Validate().
// A validation failure is fatal at startup; no court is supervised with a
// bad config.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Watchdog: WatchdogConfig{
			CheckInterval: 5,
			RestartDelay:  3,
		},
		Database: DatabaseConfig{
			Path:          "./data/obscontrol.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "obscontrol",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern:
// OBSCONTROL_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OBSCONTROL_OBS_EXECUTABLE"); v != "" {
		cfg.OBS.ExecutablePath = v
	}
	if v := os.Getenv("OBSCONTROL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("OBSCONTROL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OBSCONTROL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OBSCONTROL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("OBSCONTROL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("OBSCONTROL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together so an operator can fix
// the whole file in one pass.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.OBS.ExecutablePath) == "" {
		errs = append(errs, "obs.executable_path is required")
	}

	if len(c.Courts) == 0 {
		errs = append(errs, "at least one court must be configured")
	}

	seenNames := make(map[string]bool, len(c.Courts))
	seenPorts := make(map[int]bool, len(c.Courts))
	for i, court := range c.Courts {
		name := strings.TrimSpace(court.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("courts[%d].name cannot be empty", i))
			continue
		}
		if seenNames[name] {
			errs = append(errs, fmt.Sprintf("courts[%d].name %q is not unique", i, name))
		}
		seenNames[name] = true

		if court.WebSocketPort < 1 || court.WebSocketPort > 65535 {
			errs = append(errs, fmt.Sprintf("courts[%d].websocket_port must be between 1 and 65535", i))
		} else if seenPorts[court.WebSocketPort] {
			errs = append(errs, fmt.Sprintf("courts[%d].websocket_port %d is not unique", i, court.WebSocketPort))
		}
		seenPorts[court.WebSocketPort] = true

		if strings.TrimSpace(court.ProfileName) == "" {
			errs = append(errs, fmt.Sprintf("courts[%d].profile_name cannot be empty", i))
		}
	}

	if c.Watchdog.CheckInterval <= 0 {
		errs = append(errs, "watchdog.check_interval must be positive")
	}
	if c.Watchdog.RestartDelay <= 0 {
		errs = append(errs, "watchdog.restart_delay must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CheckInterval returns the watchdog check interval as a Duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Watchdog.CheckInterval) * time.Second
}

// RestartDelay returns the watchdog restart delay as a Duration.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.Watchdog.RestartDelay) * time.Second
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
