package dcf77

// Decoder turns a stream of pulses into an aligned telegram and validated time fields.
// Not safe for concurrent use: one goroutine owns it, readers get copies via Frame.
type Decoder struct {
	bits    Buffer
	pos     int // next index to write
	rotated bool

	minutes Field
	hours   Field
}

// NewDecoder creates a decoder with an empty buffer and no decoded time.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// HandlePulse processes one received second.
func (d *Decoder) HandlePulse(pulseMs, pauseMs int) {
	d.Process(Pulse{PulseMs: pulseMs, PauseMs: pauseMs})
}

// Process classifies the pulse into the current slot, advances the cursor and, when the
// pause marks a minute boundary, re-aligns the buffer and validates the time fields.
func (d *Decoder) Process(p Pulse) Step {
	step := Step{Written: d.pos, Class: Classify(p.PulseMs)}

	switch step.Class {
	case ClassZero:
		d.bits.Set(d.pos, false)
	case ClassOne:
		d.bits.Set(d.pos, true)
	}
	d.pos = (d.pos + 1) % Seconds

	if p.PauseMs > BoundaryPauseMs {
		// The missing 59th second is counted before aligning.
		d.pos = (d.pos + 1) % Seconds
		step.Boundary = true
		step.Rotation = d.pos

		d.bits.Rotate(d.pos)
		d.pos = 0
		d.rotated = true

		step.Check = d.validate()
	}

	return step
}

// validate commits minutes and hours from the freshly aligned buffer if their parity holds.
func (d *Decoder) validate() Check {
	var c Check
	if d.bits.Bit(BitStartOfTime) != 1 {
		return c
	}
	c.StartMarker = true

	if !d.bits.DateParityOK() {
		return c
	}
	c.DateParity = true

	if d.bits.MinuteParityOK() {
		c.MinuteParity = true
		d.minutes = Known(d.bits.Minutes())
		c.MinuteCommitted = true
	}
	if d.bits.HourParityOK() {
		c.HourParity = true
		d.hours = Known(d.bits.Hours())
		c.HourCommitted = true
	}
	return c
}

// Position returns the index of the most recently written bit.
func (d *Decoder) Position() int {
	return (d.pos + Seconds - 1) % Seconds
}

// Rotated reports whether a minute boundary has ever been detected.
func (d *Decoder) Rotated() bool {
	return d.rotated
}

// Bit returns the raw buffer value at pos.
func (d *Decoder) Bit(pos int) int {
	return d.bits.Bit(pos)
}

// Hours returns the raw BCD hour field of the current buffer, unvalidated.
func (d *Decoder) Hours() int {
	return d.bits.Hours()
}

// Minutes returns the raw BCD minute field of the current buffer, unvalidated.
func (d *Decoder) Minutes() int {
	return d.bits.Minutes()
}

// RealHours returns the last parity-checked hour value.
func (d *Decoder) RealHours() Field {
	return d.hours
}

// RealMinutes returns the last parity-checked minute value.
func (d *Decoder) RealMinutes() Field {
	return d.minutes
}

// Parity returns the XOR of the bits in the inclusive range [from, to].
func (d *Decoder) Parity(from, to int) int {
	return d.bits.Parity(from, to)
}

// Phase returns the coarse synchronization state.
func (d *Decoder) Phase() Phase {
	switch {
	case !d.rotated:
		return PhaseUnsynced
	case d.minutes.Valid() || d.hours.Valid():
		return PhaseValid
	default:
		return PhaseSynced
	}
}

// Frame is a point-in-time copy of decoder state.
// It is a value type, safe to hand to other goroutines.
type Frame struct {
	Bits        Buffer
	Position    int
	Rotated     bool
	Phase       Phase
	RealHours   Field
	RealMinutes Field
}

// Frame returns a copy of the current decoder state.
func (d *Decoder) Frame() Frame {
	return Frame{
		Bits:        d.bits,
		Position:    d.Position(),
		Rotated:     d.rotated,
		Phase:       d.Phase(),
		RealHours:   d.hours,
		RealMinutes: d.minutes,
	}
}
