// Package status provides a thread-safe status tracker for the dcf77-clock daemon.
// It is written by the run loop and read by HTTP handlers and heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// Config contains daemon configuration for display.
type Config struct {
	Source      string // websocket, gpio, replay or simulate
	Feed        string // URL, GPIO line or file the pulses come from
	Broker      string // empty = MQTT disabled
	HTTPAddr    string
	HeartbeatMs int64
}

// Counters accumulate per-pulse and per-boundary outcomes since startup.
type Counters struct {
	Pulses            int
	Zeros             int
	Ones              int
	Ignored           int
	Boundaries        int
	MinuteCommits     int
	HourCommits       int
	ParityFailures    int // boundaries rejected or partly rejected by a parity check
	StartMarkerMisses int
}

// Add folds one decoder step into the counters.
func (c *Counters) Add(step dcf77.Step) {
	c.Pulses++
	switch step.Class {
	case dcf77.ClassZero:
		c.Zeros++
	case dcf77.ClassOne:
		c.Ones++
	case dcf77.ClassIgnored:
		c.Ignored++
	}
	if !step.Boundary {
		return
	}

	c.Boundaries++
	if step.Check.MinuteCommitted {
		c.MinuteCommits++
	}
	if step.Check.HourCommitted {
		c.HourCommits++
	}
	switch step.Check.Reason() {
	case "":
	case "start_marker":
		c.StartMarkerMisses++
	default:
		c.ParityFailures++
	}
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Frame         dcf77.Frame
	LastCheck     dcf77.Check
	LastBoundary  time.Time // zero until the first minute boundary
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	FeedConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// HaveBoundary reports whether a minute boundary has been seen.
func (s Snapshot) HaveBoundary() bool {
	return !s.LastBoundary.IsZero()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Frame:     dcf77.NewDecoder().Frame(),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Observe records the decoder state after a step.
// Called from the run loop on every pulse.
func (t *Tracker) Observe(frame dcf77.Frame, step dcf77.Step, now time.Time) {
	t.mu.Lock()
	t.snap.Frame = frame
	t.snap.Counters.Add(step)
	if step.Boundary {
		t.snap.LastCheck = step.Check
		t.snap.LastBoundary = now
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetFeedConnected sets the pulse feed connection status.
func (t *Tracker) SetFeedConnected(connected bool) {
	t.mu.Lock()
	t.snap.FeedConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
