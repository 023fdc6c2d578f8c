// Package feed delivers pre-measured pulses to the decoder.
// Sources push pulses into a channel owned by the caller; the decoder itself
// is never touched from here.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

var logger = log15.New("pkg", "feed")

// Source produces pulses.
type Source interface {
	// Run sends pulses to out until ctx is done or the source is exhausted.
	// Run never closes out; returning nil means a clean stop.
	Run(ctx context.Context, out chan<- dcf77.Pulse) error
}

// Connected is implemented by sources that hold a network connection.
type Connected interface {
	IsConnected() bool
}

// TypePulse is the message type that carries a pulse measurement.
const TypePulse = 1

// Message is the JSON envelope of the live feed, one per received second.
type Message struct {
	Type  int `json:"Type"`
	Pulse int `json:"Pulse"`
	Pause int `json:"Pause"`
}

// ParseMessage decodes one envelope. ok is false for messages that carry no pulse.
func ParseMessage(data []byte) (p dcf77.Pulse, ok bool, err error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return p, false, fmt.Errorf("decode message: %w", err)
	}
	if m.Type != TypePulse {
		return p, false, nil
	}
	return dcf77.Pulse{PulseMs: m.Pulse, PauseMs: m.Pause}, true, nil
}

// FormatMessage encodes p as a pulse envelope.
func FormatMessage(p dcf77.Pulse) []byte {
	data, _ := json.Marshal(Message{Type: TypePulse, Pulse: p.PulseMs, Pause: p.PauseMs})
	return data
}

// send delivers p unless ctx is done first.
func send(ctx context.Context, out chan<- dcf77.Pulse, p dcf77.Pulse) bool {
	select {
	case out <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait sleeps for d unless ctx is done first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// paced returns the wall-clock time one pulse occupies, scaled by pace.
func paced(p dcf77.Pulse, pace float64) time.Duration {
	return time.Duration(float64(p.PulseMs+p.PauseMs) * pace * float64(time.Millisecond))
}
