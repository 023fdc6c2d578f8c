package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultGPIOLine(t *testing.T) {
	d := Default().GPIO
	assert.Equal(t, "gpiochip0", d.Chip)
	assert.Equal(t, 17, d.Line)
	assert.False(t, d.ActiveLow)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.yaml")
	data := []byte(`
source: gpio
gpio:
  line: 4
  active_low: true
mqtt:
  broker: tcp://192.168.1.200:1883
  heartbeat: 5m
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceGPIO, cfg.Source)
	assert.Equal(t, 4, cfg.GPIO.Line)
	assert.True(t, cfg.GPIO.ActiveLow)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip, "unset keys keep defaults")
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.Equal(t, 5*time.Minute, cfg.MQTT.Heartbeat)
	assert.Equal(t, 100, cfg.MQTT.BufferSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("sauce: websocket\n"), &cfg)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		source string
		mutate func(*Config)
	}{
		{"unknown source", "carrier-pigeon", func(c *Config) {}},
		{"http websocket url", SourceWebSocket, func(c *Config) { c.WebSocket.URL = "https://example.org/feed" }},
		{"zero reconnect", SourceWebSocket, func(c *Config) { c.WebSocket.Reconnect = 0 }},
		{"empty gpio chip", SourceGPIO, func(c *Config) { c.GPIO.Chip = "" }},
		{"negative gpio line", SourceGPIO, func(c *Config) { c.GPIO.Line = -1 }},
		{"empty replay path", SourceReplay, func(c *Config) { c.Replay.Path = "" }},
		{"negative replay pace", SourceReplay, func(c *Config) { c.Replay.Pace = -1 }},
		{"negative simulate pace", SourceSimulate, func(c *Config) { c.Simulate.Pace = -2 }},
		{"zero buffer", SourceWebSocket, func(c *Config) { c.MQTT.BufferSize = 0 }},
		{"negative heartbeat", SourceWebSocket, func(c *Config) { c.MQTT.Heartbeat = -time.Second }},
		{"bad level", SourceWebSocket, func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", SourceWebSocket, func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Source = tt.source
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateMQTTDisabled(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = ""
	cfg.MQTT.BufferSize = 0
	assert.NoError(t, cfg.Validate(), "buffer size is irrelevant without a broker")
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceReplay
	cfg.Replay.Path = "/var/lib/dcf77/minutes.jsonl"

	data, err := cfg.YAML()
	require.NoError(t, err)

	got := Default()
	require.NoError(t, Parse(data, &got))
	assert.Equal(t, cfg, got)
}
