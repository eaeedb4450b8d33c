package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Telemetry Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	TimeSeries TimeSeriesConfig `yaml:"timeseries"`
	Automation AutomationConfig `yaml:"automation"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`

	// CleanSession false keeps the broker-side session (and queued QoS>0
	// telemetry) across restarts, giving the telemetry subscription
	// durable-queue semantics.
	CleanSession bool `yaml:"clean_session"`

	// IngestBuffer is the number of received telemetry messages that may wait
	// for the ingest loop. Unacknowledged messages also count against the
	// broker's in-flight window.
	IngestBuffer int `yaml:"ingest_buffer"`
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

// MQTTTopicsConfig names the bus topics.
type MQTTTopicsConfig struct {
	// Prefix is prepended to system topics (status, LWT).
	Prefix string `yaml:"prefix"`

	// Telemetry is the topic filter the ingest loop subscribes to.
	Telemetry string `yaml:"telemetry"`

	// Command is the topic outbound commands are published on.
	// It must never match the Telemetry filter.
	Command string `yaml:"command"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// TimeSeriesConfig contains channel provisioning and streaming settings.
type TimeSeriesConfig struct {
	// ChannelsFile lists the channels to provision at startup.
	ChannelsFile string `yaml:"channels_file"`

	// StreamPollIntervalMS is how often feedback channels are polled.
	StreamPollIntervalMS int `yaml:"stream_poll_interval_ms"`

	// StreamLookbackSeconds bounds how far back the first poll of a
	// (re)opened streamer looks.
	StreamLookbackSeconds int `yaml:"stream_lookback_seconds"`
}

// AutomationConfig contains rule engine settings.
type AutomationConfig struct {
	// RulesImportFile is a JSON array of rules imported once when the
	// rule store is empty at startup.
	RulesImportFile string `yaml:"rules_import_file"`

	// DelayedRevalidate re-checks a delayed rule's threshold against the
	// latest value of its watch channel when the delay elapses.
	DelayedRevalidate bool `yaml:"delayed_revalidate"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains bounded retry settings for action execution.
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	InitialDelayMS int `yaml:"initial_delay_ms"`
	MaxDelayMS     int `yaml:"max_delay_ms"`
}

// FeedbackConfig contains feedback loop settings.
type FeedbackConfig struct {
	Enabled bool `yaml:"enabled"`

	// Source is written into the Source field of forwarded commands.
	Source string `yaml:"source"`

	// ReconnectDelayMS is the pause before a failed streamer is reopened.
	ReconnectDelayMS int `yaml:"reconnect_delay_ms"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"` // stdout, stderr, file, both
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
// An empty secret leaves the admin API unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TELEMETRYCORE_SECTION_KEY
// For example: TELEMETRYCORE_DATABASE_PATH, TELEMETRYCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Telemetry Core",
		},
		Database: DatabaseConfig{
			Path:        "./data/telemetrycore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "telemetry-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Topics: MQTTTopicsConfig{
				Prefix:    "telemetrycore",
				Telemetry: "tlm",
				Command:   "cmd",
			},
			CleanSession: false,
			IngestBuffer: 1024,
		},
		InfluxDB: InfluxDBConfig{
			Enabled: true,
			URL:     "http://localhost:8086",
			Org:     "telemetry",
			Bucket:  "telemetry",
		},
		TimeSeries: TimeSeriesConfig{
			ChannelsFile:          "configs/channels.yaml",
			StreamPollIntervalMS:  500,
			StreamLookbackSeconds: 5,
		},
		Automation: AutomationConfig{
			DelayedRevalidate: true,
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialDelayMS: 100,
				MaxDelayMS:     2000,
			},
		},
		Feedback: FeedbackConfig{
			Enabled:          true,
			Source:           "feedback",
			ReconnectDelayMS: 2000,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8500,
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
			File: FileLoggingConfig{
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TELEMETRYCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("TELEMETRYCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("TELEMETRYCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TELEMETRYCORE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("TELEMETRYCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TELEMETRYCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TELEMETRYCORE_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("TELEMETRYCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Time series
	if v := os.Getenv("TELEMETRYCORE_CHANNELS_FILE"); v != "" {
		cfg.TimeSeries.ChannelsFile = v
	}

	// API
	if v := os.Getenv("TELEMETRYCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Security
	if v := os.Getenv("TELEMETRYCORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topics.Telemetry == "" {
		errs = append(errs, "mqtt.topics.telemetry is required")
	}
	if c.MQTT.Topics.Command == "" {
		errs = append(errs, "mqtt.topics.command is required")
	}
	if c.MQTT.Topics.Telemetry != "" && c.MQTT.Topics.Telemetry == c.MQTT.Topics.Command {
		errs = append(errs, "mqtt.topics.telemetry and mqtt.topics.command must differ")
	}
	if c.MQTT.IngestBuffer < 1 {
		errs = append(errs, "mqtt.ingest_buffer must be at least 1")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Automation.Retry.MaxAttempts < 0 {
		errs = append(errs, "automation.retry.max_attempts cannot be negative")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "file", "both":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required for file output")
		}
	}

	// An empty secret disables auth; a short one is rejected outright.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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
