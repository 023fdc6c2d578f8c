// Package dcf77 decodes the DCF77 longwave time telegram.
// This package has NO external dependencies (no network, GPIO, OS, or time.Sleep).
// Pulse timings arrive pre-measured in milliseconds, one call per transmitted second.
package dcf77

// Seconds is the number of bits in one telegram minute.
const Seconds = 60

// Pulse timing thresholds in milliseconds.
const (
	ZeroMaxMs       = 150  // pulses shorter than this are a 0 bit
	OneMaxMs        = 250  // pulses shorter than this (and >= ZeroMaxMs) are a 1 bit
	BoundaryPauseMs = 1200 // pauses longer than this mark a minute boundary
)

// Pulse is one received second: the carrier reduction and the silence that followed it.
type Pulse struct {
	PulseMs int
	PauseMs int
}

// Class is the classification of a single pulse length.
type Class string

const (
	ClassZero    Class = "ZERO"
	ClassOne     Class = "ONE"
	ClassIgnored Class = "IGNORED" // too long; the stored bit is left as it was
)

// Classify maps a pulse length to a bit class.
func Classify(pulseMs int) Class {
	switch {
	case pulseMs < ZeroMaxMs:
		return ClassZero
	case pulseMs < OneMaxMs:
		return ClassOne
	default:
		return ClassIgnored
	}
}

// Phase is the coarse decoder state.
type Phase string

const (
	PhaseUnsynced Phase = "UNSYNCED" // no minute boundary seen yet
	PhaseSynced   Phase = "SYNCED"   // aligned, but no field has been committed
	PhaseValid    Phase = "VALID"    // at least one field committed at least once
)

// Field is a decoded value that is only meaningful once committed.
// The zero Field is "never decoded".
type Field struct {
	value int
	valid bool
}

// Known returns a committed Field holding v.
func Known(v int) Field {
	return Field{value: v, valid: true}
}

// Get returns the value and whether it was ever committed.
func (f Field) Get() (int, bool) {
	return f.value, f.valid
}

// Valid reports whether a value was ever committed.
func (f Field) Valid() bool {
	return f.valid
}

// Int returns the value, or -1 if no value was ever committed.
func (f Field) Int() int {
	if !f.valid {
		return -1
	}
	return f.value
}

// Check describes the validation run at a minute boundary.
// Parity results are only set for the checks that were actually evaluated.
type Check struct {
	StartMarker     bool // bit 20 was set
	DateParity      bool
	MinuteParity    bool
	HourParity      bool
	MinuteCommitted bool
	HourCommitted   bool
}

// Reason returns a short label for why nothing (or only part) was committed.
// Returns "" when both fields were committed.
func (c Check) Reason() string {
	switch {
	case !c.StartMarker:
		return "start_marker"
	case !c.DateParity:
		return "date_parity"
	case !c.MinuteParity && !c.HourParity:
		return "minute_hour_parity"
	case !c.MinuteParity:
		return "minute_parity"
	case !c.HourParity:
		return "hour_parity"
	}
	return ""
}

// Step reports what a single call to Process did.
type Step struct {
	Written  int   // index the pulse was classified into
	Class    Class // classification of the pulse
	Boundary bool  // the pause marked a minute boundary
	Rotation int   // rotation applied at the boundary (0 if none)
	Check    Check // only meaningful when Boundary is true
}
