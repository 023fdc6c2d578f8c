// Package mqtt publishes decoded minutes and lifecycle events, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

var logger = log15.New("pkg", "mqtt")

// TopicMinute receives one message per minute boundary.
const TopicMinute = "dcf77/clock/minute"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "dcf77/clock/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a minute event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event MinuteEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Backlog reports how many messages are waiting for a broker connection.
type Backlog interface {
	Buffered() int
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(MinuteEvent) error       { return nil }
func (Nop) PublishSystem(SystemEvent) error { return nil }
func (Nop) Close() error                    { return nil }
func (Nop) IsConnected() bool               { return false }
func (Nop) Buffered() int                   { return 0 }

// MinuteEvent is the outcome of one minute boundary.
type MinuteEvent struct {
	Timestamp time.Time
	Phase     dcf77.Phase
	Hours     dcf77.Field // last committed value, possibly stale
	Minutes   dcf77.Field
	Check     dcf77.Check
	Rotation  int
	Bits      string
}

// NewMinuteEvent builds the event for a boundary step from the decoder state after it.
func NewMinuteEvent(now time.Time, frame dcf77.Frame, step dcf77.Step) MinuteEvent {
	return MinuteEvent{
		Timestamp: now,
		Phase:     frame.Phase,
		Hours:     frame.RealHours,
		Minutes:   frame.RealMinutes,
		Check:     step.Check,
		Rotation:  step.Rotation,
		Bits:      frame.Bits.String(),
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Minute MinutePayload `json:"minute"`
}

// MinutePayload contains the minute event details.
type MinutePayload struct {
	Timestamp       string `json:"timestamp"`
	Event           string `json:"event"`
	Phase           string `json:"phase"`
	Time            string `json:"time,omitempty"` // HH:MM, only when both fields are known
	Hours           *int   `json:"hours"`
	Minutes         *int   `json:"minutes"`
	HourCommitted   bool   `json:"hour_committed"`
	MinuteCommitted bool   `json:"minute_committed"`
	StartMarker     bool   `json:"start_marker"`
	DateParity      bool   `json:"date_parity"`
	MinuteParity    bool   `json:"minute_parity"`
	HourParity      bool   `json:"hour_parity"`
	Reason          string `json:"reason,omitempty"`
	Rotation        int    `json:"rotation"`
	Bits            string `json:"bits"`
}

func fieldPtr(f dcf77.Field) *int {
	v, ok := f.Get()
	if !ok {
		return nil
	}
	return &v
}

// FormatPayload creates the JSON payload for a minute event.
func FormatPayload(event MinuteEvent) ([]byte, error) {
	inner := MinutePayload{
		Timestamp:       event.Timestamp.UTC().Format(time.RFC3339),
		Event:           "MINUTE",
		Phase:           string(event.Phase),
		Hours:           fieldPtr(event.Hours),
		Minutes:         fieldPtr(event.Minutes),
		HourCommitted:   event.Check.HourCommitted,
		MinuteCommitted: event.Check.MinuteCommitted,
		StartMarker:     event.Check.StartMarker,
		DateParity:      event.Check.DateParity,
		MinuteParity:    event.Check.MinuteParity,
		HourParity:      event.Check.HourParity,
		Reason:          event.Check.Reason(),
		Rotation:        event.Rotation,
		Bits:            event.Bits,
	}
	if inner.Hours != nil && inner.Minutes != nil {
		inner.Time = fmt.Sprintf("%02d:%02d", *inner.Hours, *inner.Minutes)
	}
	return json.Marshal(Payload{Minute: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
