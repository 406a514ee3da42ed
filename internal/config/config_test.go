package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9470, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 1500*time.Millisecond, cfg.Flow.CenteringDelay)
	assert.Equal(t, "gpt-4o", cfg.Insight.Model)
	assert.Equal(t, 0.7, cfg.Insight.Temperature)
	assert.Equal(t, 3, cfg.Insight.HistorySize)
	assert.False(t, cfg.Insight.Enabled)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:9470", cfg.Server.Addr())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "shutdown timeout"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "unknown storage backend"},
		{"file without path", func(c *Config) { c.Storage.Backend = BackendFile; c.Storage.Path = "" }, "storage path required"},
		{"centering too long", func(c *Config) { c.Flow.CenteringDelay = 2 * time.Minute }, "centering delay"},
		{"bad timezone", func(c *Config) { c.Flow.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"insight bad url", func(c *Config) { c.Insight.Enabled = true; c.Insight.URL = "ftp://x" }, "insight url"},
		{"temperature", func(c *Config) { c.Insight.Temperature = 3 }, "temperature"},
		{"history", func(c *Config) { c.Insight.HistorySize = 11 }, "history size"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "unknown log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"telemetry protocol", func(c *Config) {
			c.Observability.EnableTelemetry = true
			c.Observability.Protocol = "udp"
		}, "telemetry protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemoryBackendNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendMemory
	cfg.Storage.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestFlowLocation(t *testing.T) {
	loc, err := FlowConfig{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = FlowConfig{Timezone: "Asia/Taipei"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", loc.String())
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "sk-live-123", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-live")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := ExpandPath("~/.config/imxin/imxin.db")
	require.NoError(t, err)
	assert.Equal(t, home+"/.config/imxin/imxin.db", p)

	p, err = ExpandPath("/var/lib/imxin")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/imxin", p)
}
