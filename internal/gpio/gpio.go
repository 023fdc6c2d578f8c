// Package gpio measures pulses from a DCF77 receiver module wired to a GPIO line.
// The real implementation uses the Linux GPIO character device.
// Edge timing is kept separate so it can be tested without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// Edge is a logical level change of the receiver output.
// Rising means the start of a carrier reduction (a pulse).
type Edge struct {
	Rising bool
	At     time.Duration // monotonic timestamp
}

type edgeState int

const (
	stateIdle edgeState = iota // waiting for the first rising edge
	stateHigh                  // inside a pulse
	stateLow                   // inside the pause after a pulse
)

// EdgeTimer turns edges into pulse/pause pairs. A pulse is complete once the
// next rising edge ends its pause, so each Pulse is reported one edge late.
// The zero value is ready to use.
type EdgeTimer struct {
	state edgeState
	rise  time.Duration
	fall  time.Duration
	last  time.Duration
}

// Feed processes one edge and returns a pulse when one was completed.
func (e *EdgeTimer) Feed(ev Edge) (dcf77.Pulse, bool) {
	if e.state != stateIdle && ev.At < e.last {
		// Clock went backwards; nothing measured so far can be trusted.
		e.state = stateIdle
	}
	e.last = ev.At

	if ev.Rising {
		var p dcf77.Pulse
		ok := e.state == stateLow
		if ok {
			p = dcf77.Pulse{
				PulseMs: int((e.fall - e.rise) / time.Millisecond),
				PauseMs: int((ev.At - e.fall) / time.Millisecond),
			}
		}
		e.rise = ev.At
		e.state = stateHigh
		return p, ok
	}

	if e.state == stateHigh {
		e.fall = ev.At
		e.state = stateLow
	} else {
		// Falling edge without a pulse in progress.
		e.state = stateIdle
	}
	return dcf77.Pulse{}, false
}

// Reset discards any partial measurement.
func (e *EdgeTimer) Reset() {
	*e = EdgeTimer{}
}

// seqGap reports whether the line sequence number skipped from last to seq,
// meaning edges were lost in between. A last of 0 means no event was seen yet.
func seqGap(last, seq uint32) bool {
	return last != 0 && seq != last+1
}
