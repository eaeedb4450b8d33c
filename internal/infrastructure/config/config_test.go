package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
  topics:
    telemetry: "plant/tlm"
    command: "plant/cmd"
automation:
  delayed_revalidate: false
  retry:
    max_attempts: 1
api:
  port: 8500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-site", cfg.Site.ID)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, "plant/tlm", cfg.MQTT.Topics.Telemetry)
	assert.Equal(t, "plant/cmd", cfg.MQTT.Topics.Command)
	assert.False(t, cfg.Automation.DelayedRevalidate)
	assert.Equal(t, 1, cfg.Automation.Retry.MaxAttempts)

	// Unset keys keep their defaults.
	assert.Equal(t, 1024, cfg.MQTT.IngestBuffer)
	assert.Equal(t, "feedback", cfg.Feedback.Source)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "invalid: [yaml: content")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeFile(t, "config.yaml", `
site:
  id: ""
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site.id is required")
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "valid with JWT secret",
			mutate: func(c *Config) { c.Security.JWT.Secret = validJWTSecret },
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id is required",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "missing telemetry topic",
			mutate:  func(c *Config) { c.MQTT.Topics.Telemetry = "" },
			wantErr: "mqtt.topics.telemetry is required",
		},
		{
			name: "telemetry and command topics equal",
			mutate: func(c *Config) {
				c.MQTT.Topics.Telemetry = "bus"
				c.MQTT.Topics.Command = "bus"
			},
			wantErr: "must differ",
		},
		{
			name:    "zero ingest buffer",
			mutate:  func(c *Config) { c.MQTT.IngestBuffer = 0 },
			wantErr: "mqtt.ingest_buffer",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.URL = "" },
			wantErr: "influxdb.url",
		},
		{
			name:    "negative retry attempts",
			mutate:  func(c *Config) { c.Automation.Retry.MaxAttempts = -1 },
			wantErr: "automation.retry.max_attempts",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "file logging without path",
			mutate:  func(c *Config) { c.Logging.Output = "both" },
			wantErr: "logging.file.path",
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "security.jwt.secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	assert.Equal(t, 30*time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 45*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetIdleTimeout())
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TELEMETRYCORE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("TELEMETRYCORE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TELEMETRYCORE_MQTT_PORT", "8883")
	t.Setenv("TELEMETRYCORE_MQTT_USERNAME", "testuser")
	t.Setenv("TELEMETRYCORE_MQTT_PASSWORD", "testpass")
	t.Setenv("TELEMETRYCORE_API_HOST", "192.168.1.1")
	t.Setenv("TELEMETRYCORE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TELEMETRYCORE_CHANNELS_FILE", "/etc/channels.yaml")
	t.Setenv("TELEMETRYCORE_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	assert.Equal(t, "/custom/path.db", cfg.Database.Path)
	assert.Equal(t, "mqtt.example.com", cfg.MQTT.Broker.Host)
	assert.Equal(t, 8883, cfg.MQTT.Broker.Port)
	assert.Equal(t, "testuser", cfg.MQTT.Auth.Username)
	assert.Equal(t, "testpass", cfg.MQTT.Auth.Password)
	assert.Equal(t, "192.168.1.1", cfg.API.Host)
	assert.Equal(t, "secret-token", cfg.InfluxDB.Token)
	assert.Equal(t, "/etc/channels.yaml", cfg.TimeSeries.ChannelsFile)
	assert.Equal(t, "jwt-secret", cfg.Security.JWT.Secret)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.NotEmpty(t, cfg.Site.ID)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
	assert.Equal(t, 1, cfg.MQTT.QoS)
	assert.False(t, cfg.MQTT.CleanSession)
	assert.Equal(t, 8500, cfg.API.Port)
	assert.True(t, cfg.Automation.DelayedRevalidate)
	assert.Equal(t, 3, cfg.Automation.Retry.MaxAttempts)
	assert.NotEqual(t, cfg.MQTT.Topics.Telemetry, cfg.MQTT.Topics.Command)
}

func TestLoad_ShippedConfigs(t *testing.T) {
	for _, name := range []string{"TELEMETRYCORE_DATABASE_PATH", "TELEMETRYCORE_JWT_SECRET", "TELEMETRYCORE_CHANNELS_FILE"} {
		t.Setenv(name, "")
	}

	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "plant-01", cfg.Site.ID)
	assert.Equal(t, "Operator Console", cfg.Feedback.Source)
	assert.Equal(t, "configs/channels.yaml", cfg.TimeSeries.ChannelsFile)
	assert.Empty(t, cfg.Security.JWT.Secret)

	channels, err := LoadChannels(filepath.Join("..", "..", "..", "configs", "channels.yaml"))
	require.NoError(t, err)
	assert.Len(t, channels, 8, "video entry is skipped")
}
