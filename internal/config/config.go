// Package config loads daemon configuration from YAML, with defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceWebSocket = "websocket"
	SourceGPIO      = "gpio"
	SourceReplay    = "replay"
	SourceSimulate  = "simulate"
)

// Config is the full daemon configuration.
type Config struct {
	Source    string          `yaml:"source"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Replay    ReplayConfig    `yaml:"replay"`
	Simulate  SimulateConfig  `yaml:"simulate"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// WebSocketConfig describes the live pulse feed.
type WebSocketConfig struct {
	URL       string        `yaml:"url"`
	Origin    string        `yaml:"origin"`
	Reconnect time.Duration `yaml:"reconnect"`
}

// GPIOConfig describes a locally attached receiver module.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	Line      int    `yaml:"line"`
	ActiveLow bool   `yaml:"active_low"` // receiver pulls the line low during a pulse
}

// ReplayConfig describes a recorded feed (or "-" for stdin).
type ReplayConfig struct {
	Path string  `yaml:"path"`
	Pace float64 `yaml:"pace"` // 1 = real time, 0 = as fast as possible
}

// SimulateConfig describes a generated feed that transmits the local clock.
type SimulateConfig struct {
	Pace float64 `yaml:"pace"`
}

// MQTTConfig describes the broker connection. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	ClientID   string        `yaml:"client_id"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size"`
}

// HTTPConfig describes the status server. An empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // terminal, logfmt or json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source: SourceWebSocket,
		WebSocket: WebSocketConfig{
			URL:       "wss://www.dcf77logs.de/ajax/liveview",
			Reconnect: 5 * time.Second,
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			Line: 17,
		},
		Replay: ReplayConfig{
			Path: "-",
		},
		Simulate: SimulateConfig{
			Pace: 1,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://localhost:1883",
			ClientID:   "dcf77-clock",
			Heartbeat:  15 * time.Minute,
			BufferSize: 100,
		},
		HTTP: HTTPConfig{
			Addr: ":8077",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "terminal",
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Source {
	case SourceWebSocket:
		u, err := url.Parse(c.WebSocket.URL)
		if err != nil {
			return fmt.Errorf("websocket.url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("websocket.url: scheme must be ws or wss, got %q", u.Scheme)
		}
		if c.WebSocket.Reconnect <= 0 {
			return errors.New("websocket.reconnect must be positive")
		}
	case SourceGPIO:
		if c.GPIO.Chip == "" {
			return errors.New("gpio.chip must be set")
		}
		if c.GPIO.Line < 0 {
			return fmt.Errorf("gpio.line must not be negative, got %d", c.GPIO.Line)
		}
	case SourceReplay:
		if c.Replay.Path == "" {
			return errors.New("replay.path must be set")
		}
		if c.Replay.Pace < 0 {
			return fmt.Errorf("replay.pace must not be negative, got %v", c.Replay.Pace)
		}
	case SourceSimulate:
		if c.Simulate.Pace < 0 {
			return fmt.Errorf("simulate.pace must not be negative, got %v", c.Simulate.Pace)
		}
	default:
		return fmt.Errorf("source: unknown kind %q", c.Source)
	}

	if c.MQTT.Broker != "" {
		if _, err := url.Parse(c.MQTT.Broker); err != nil {
			return fmt.Errorf("mqtt.broker: %w", err)
		}
		if c.MQTT.BufferSize <= 0 {
			return fmt.Errorf("mqtt.buffer_size must be positive, got %d", c.MQTT.BufferSize)
		}
	}
	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt.heartbeat must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error", "crit":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "terminal", "logfmt", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// YAML renders the configuration, e.g. for --print-config.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
