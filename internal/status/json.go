package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Phase         string       `json:"phase"`
	Time          string       `json:"time,omitempty"`
	Hours         *int         `json:"hours"`
	Minutes       *int         `json:"minutes"`
	Position      int          `json:"position"`
	Rotated       bool         `json:"rotated"`
	Bits          string       `json:"bits"`
	LastCheck     *CheckJSON   `json:"last_check,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Feed          FeedStatus   `json:"feed"`
	Counters      CountersJSON `json:"counters"`
	Config        ConfigJSON   `json:"config"`
}

// CheckJSON is the JSON representation of the last boundary validation.
type CheckJSON struct {
	Timestamp       string `json:"timestamp"`
	StartMarker     bool   `json:"start_marker"`
	DateParity      bool   `json:"date_parity"`
	MinuteParity    bool   `json:"minute_parity"`
	HourParity      bool   `json:"hour_parity"`
	MinuteCommitted bool   `json:"minute_committed"`
	HourCommitted   bool   `json:"hour_committed"`
	Reason          string `json:"reason,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// FeedStatus reports where pulses come from.
type FeedStatus struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Connected bool   `json:"connected"`
}

// CountersJSON is the JSON representation of the decoder counters.
type CountersJSON struct {
	Pulses            int `json:"pulses"`
	Zeros             int `json:"zeros"`
	Ones              int `json:"ones"`
	Ignored           int `json:"ignored"`
	Boundaries        int `json:"boundaries"`
	MinuteCommits     int `json:"minute_commits"`
	HourCommits       int `json:"hour_commits"`
	ParityFailures    int `json:"parity_failures"`
	StartMarkerMisses int `json:"start_marker_misses"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source      string `json:"source"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func fieldPtr(f dcf77.Field) *int {
	if v, ok := f.Get(); ok {
		return &v
	}
	return nil
}

func buildInner(snap Snapshot) StatusInner {
	f := snap.Frame
	inner := StatusInner{
		Phase:         string(f.Phase),
		Hours:         fieldPtr(f.RealHours),
		Minutes:       fieldPtr(f.RealMinutes),
		Position:      f.Position,
		Rotated:       f.Rotated,
		Bits:          f.Bits.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Feed: FeedStatus{
			Source:    snap.Config.Source,
			Target:    snap.Config.Feed,
			Connected: snap.FeedConnected,
		},
		Counters: CountersJSON(snap.Counters),
		Config: ConfigJSON{
			Source:      snap.Config.Source,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if inner.Hours != nil && inner.Minutes != nil {
		inner.Time = fmt.Sprintf("%02d:%02d", *inner.Hours, *inner.Minutes)
	}
	if snap.HaveBoundary() {
		c := snap.LastCheck
		inner.LastCheck = &CheckJSON{
			Timestamp:       snap.LastBoundary.UTC().Format(time.RFC3339),
			StartMarker:     c.StartMarker,
			DateParity:      c.DateParity,
			MinuteParity:    c.MinuteParity,
			HourParity:      c.HourParity,
			MinuteCommitted: c.MinuteCommitted,
			HourCommitted:   c.HourCommitted,
			Reason:          c.Reason(),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
