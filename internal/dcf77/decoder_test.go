package dcf77

import (
	"testing"
)

// feed sends every pulse to the decoder and returns the last step.
func feed(d *Decoder, pulses []Pulse) Step {
	var last Step
	for _, p := range pulses {
		last = d.Process(p)
	}
	return last
}

// flip returns a copy of b with the bit at i inverted.
func flip(b Buffer, i int) Buffer {
	b.Set(i, b.Bit(i) == 0)
	return b
}

func TestNewDecoder(t *testing.T) {
	d := NewDecoder()
	if d.Rotated() {
		t.Error("new decoder should not be rotated")
	}
	if d.Phase() != PhaseUnsynced {
		t.Errorf("expected phase UNSYNCED, got %s", d.Phase())
	}
	if d.RealHours().Int() != -1 {
		t.Errorf("expected real hours -1, got %d", d.RealHours().Int())
	}
	if d.RealMinutes().Int() != -1 {
		t.Errorf("expected real minutes -1, got %d", d.RealMinutes().Int())
	}
	if d.Position() != 59 {
		t.Errorf("expected position 59 before any pulse, got %d", d.Position())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pulse int
		want  Class
	}{
		{0, ClassZero},
		{100, ClassZero},
		{149, ClassZero},
		{150, ClassOne},
		{200, ClassOne},
		{249, ClassOne},
		{250, ClassIgnored},
		{900, ClassIgnored},
		{-5, ClassZero},
	}
	for _, tt := range tests {
		if got := Classify(tt.pulse); got != tt.want {
			t.Errorf("Classify(%d): got %s, want %s", tt.pulse, got, tt.want)
		}
	}
}

func TestHandlePulseWritesBits(t *testing.T) {
	d := NewDecoder()

	d.HandlePulse(200, 800)
	if d.Bit(0) != 1 {
		t.Errorf("bit 0: got %d, want 1", d.Bit(0))
	}
	if d.Position() != 0 {
		t.Errorf("position: got %d, want 0", d.Position())
	}

	d.HandlePulse(100, 900)
	if d.Bit(1) != 0 {
		t.Errorf("bit 1: got %d, want 0", d.Bit(1))
	}
	if d.Position() != 1 {
		t.Errorf("position: got %d, want 1", d.Position())
	}
}

func TestLongPulseKeepsStaleBit(t *testing.T) {
	d := NewDecoder()

	// First lap: set bit 0 to 1.
	d.HandlePulse(200, 800)
	for i := 1; i < Seconds; i++ {
		d.HandlePulse(100, 900)
	}

	// Second lap: ambiguous pulse at index 0 must not overwrite it.
	step := d.Process(Pulse{PulseMs: 400, PauseMs: 600})
	if step.Class != ClassIgnored {
		t.Errorf("expected IGNORED, got %s", step.Class)
	}
	if step.Written != 0 {
		t.Errorf("expected write index 0, got %d", step.Written)
	}
	if d.Bit(0) != 1 {
		t.Errorf("stale bit should be kept, got %d", d.Bit(0))
	}
	if d.Position() != 0 {
		t.Errorf("cursor should still advance, position got %d", d.Position())
	}
}

func TestCursorWrapsWithoutBoundary(t *testing.T) {
	d := NewDecoder()
	for i := 0; i < Seconds+5; i++ {
		d.HandlePulse(100, 900)
	}
	if d.Position() != 4 {
		t.Errorf("position: got %d, want 4", d.Position())
	}
	if d.Rotated() {
		t.Error("should not rotate without a long pause")
	}
}

func TestBoundaryRotation(t *testing.T) {
	d := NewDecoder()

	// Ten pulses, the 10th written at index 9, then a boundary.
	for i := 0; i < 9; i++ {
		d.HandlePulse(100, 900)
	}
	d.HandlePulse(200, 800) // index 9 = 1
	for i := 0; i < 3; i++ {
		d.HandlePulse(100, 900) // indexes 10, 11, 12
	}
	d.HandlePulse(200, 800) // index 13 = 1

	step := d.Process(Pulse{PulseMs: 200, PauseMs: 1800}) // index 14 = 1, boundary
	if !step.Boundary {
		t.Fatal("expected boundary")
	}
	// cursor: 15, plus the missing second: 16
	if step.Rotation != 16 {
		t.Errorf("rotation: got %d, want 16", step.Rotation)
	}
	if !d.Rotated() {
		t.Error("expected rotated after boundary")
	}
	if d.Position() != 59 {
		t.Errorf("position after boundary: got %d, want 59", d.Position())
	}

	// old index 14 -> 58, 13 -> 57, 9 -> 53
	for _, i := range []int{53, 57, 58} {
		if d.Bit(i) != 1 {
			t.Errorf("bit %d: got 0, want 1", i)
		}
	}
	for _, i := range []int{0, 52, 54, 55, 56, 59} {
		if d.Bit(i) != 0 {
			t.Errorf("bit %d: got 1, want 0", i)
		}
	}
}

func TestDecodeValidMinute(t *testing.T) {
	d := NewDecoder()
	step := feed(d, Transmit(Encode(Time{Hours: 13, Minutes: 25, Day: 14, Weekday: 3, Month: 10, Year: 26})))

	if !step.Boundary {
		t.Fatal("expected boundary on last pulse")
	}
	if step.Rotation != 0 {
		t.Errorf("rotation from a clean start: got %d, want 0", step.Rotation)
	}
	if !step.Check.MinuteCommitted || !step.Check.HourCommitted {
		t.Errorf("expected both fields committed, got %+v", step.Check)
	}
	if step.Check.Reason() != "" {
		t.Errorf("expected empty reason, got %q", step.Check.Reason())
	}
	if got := d.RealMinutes().Int(); got != 25 {
		t.Errorf("real minutes: got %d, want 25", got)
	}
	if got := d.RealHours().Int(); got != 13 {
		t.Errorf("real hours: got %d, want 13", got)
	}
	if d.Phase() != PhaseValid {
		t.Errorf("phase: got %s, want VALID", d.Phase())
	}
}

func TestDecodeMidStream(t *testing.T) {
	d := NewDecoder()
	// Noise before the first full minute, as when tuning in mid-minute.
	for i := 0; i < 23; i++ {
		d.HandlePulse(100, 900)
	}
	step := feed(d, Transmit(Encode(Time{Hours: 7, Minutes: 59})))

	if step.Rotation != 23 {
		t.Errorf("rotation: got %d, want 23", step.Rotation)
	}
	if got := d.RealMinutes().Int(); got != 59 {
		t.Errorf("real minutes: got %d, want 59", got)
	}
	if got := d.RealHours().Int(); got != 7 {
		t.Errorf("real hours: got %d, want 7", got)
	}
	if d.Minutes() != 59 || d.Hours() != 7 {
		t.Errorf("raw fields: got %02d:%02d, want 07:59", d.Hours(), d.Minutes())
	}
}

func TestMinuteParityFailureKeepsPrevious(t *testing.T) {
	d := NewDecoder()

	bad := flip(Encode(Time{Hours: 10, Minutes: 25}), BitMinuteParity)
	step := feed(d, Transmit(bad))
	if step.Check.MinuteCommitted {
		t.Error("minute should not commit with wrong parity")
	}
	if !step.Check.HourCommitted {
		t.Error("hour should still commit")
	}
	if step.Check.Reason() != "minute_parity" {
		t.Errorf("reason: got %q, want minute_parity", step.Check.Reason())
	}
	if d.RealMinutes().Valid() {
		t.Errorf("real minutes should be unknown, got %d", d.RealMinutes().Int())
	}
	if d.RealHours().Int() != 10 {
		t.Errorf("real hours: got %d, want 10", d.RealHours().Int())
	}

	feed(d, Transmit(Encode(Time{Hours: 10, Minutes: 26})))
	if d.RealMinutes().Int() != 26 {
		t.Fatalf("real minutes: got %d, want 26", d.RealMinutes().Int())
	}

	feed(d, Transmit(flip(Encode(Time{Hours: 10, Minutes: 27}), BitMinuteOnes)))
	if d.RealMinutes().Int() != 26 {
		t.Errorf("stale minute expected 26, got %d", d.RealMinutes().Int())
	}
}

func TestHourParityFailure(t *testing.T) {
	d := NewDecoder()
	step := feed(d, Transmit(flip(Encode(Time{Hours: 21, Minutes: 5}), BitHourTens)))

	if step.Check.HourCommitted {
		t.Error("hour should not commit with corrupted tens")
	}
	if d.RealHours().Valid() {
		t.Errorf("real hours should be unknown, got %d", d.RealHours().Int())
	}
	if d.RealMinutes().Int() != 5 {
		t.Errorf("real minutes: got %d, want 5", d.RealMinutes().Int())
	}
}

func TestDateParityGatesBothFields(t *testing.T) {
	d := NewDecoder()
	step := feed(d, Transmit(flip(Encode(Time{Hours: 12, Minutes: 34, Day: 1}), BitDayOnes)))

	if !step.Check.StartMarker {
		t.Error("start marker should be seen")
	}
	if step.Check.DateParity {
		t.Error("date parity should fail")
	}
	if step.Check.MinuteCommitted || step.Check.HourCommitted {
		t.Errorf("no field should commit, got %+v", step.Check)
	}
	if step.Check.Reason() != "date_parity" {
		t.Errorf("reason: got %q", step.Check.Reason())
	}
	if d.Phase() != PhaseSynced {
		t.Errorf("phase: got %s, want SYNCED", d.Phase())
	}
}

func TestMissingStartMarker(t *testing.T) {
	d := NewDecoder()
	step := feed(d, Transmit(flip(Encode(Time{Hours: 12, Minutes: 34}), BitStartOfTime)))

	if step.Check.StartMarker {
		t.Error("start marker should be missing")
	}
	if step.Check.Reason() != "start_marker" {
		t.Errorf("reason: got %q", step.Check.Reason())
	}
	if d.RealMinutes().Valid() || d.RealHours().Valid() {
		t.Error("no field should commit without the start marker")
	}
	if !d.Rotated() {
		t.Error("rotation happens regardless of content")
	}
}

func TestRotatedNeverResets(t *testing.T) {
	d := NewDecoder()
	d.HandlePulse(100, 1500)
	if !d.Rotated() {
		t.Fatal("expected rotated after first long pause")
	}
	for i := 0; i < 200; i++ {
		d.HandlePulse(100, 900)
	}
	if !d.Rotated() {
		t.Error("rotated flag must stay set")
	}
}

func TestBoundaryThreshold(t *testing.T) {
	d := NewDecoder()
	if d.Process(Pulse{PulseMs: 100, PauseMs: BoundaryPauseMs}).Boundary {
		t.Error("pause equal to the threshold is not a boundary")
	}
	if !d.Process(Pulse{PulseMs: 100, PauseMs: BoundaryPauseMs + 1}).Boundary {
		t.Error("pause above the threshold is a boundary")
	}
}

func TestFrameIsACopy(t *testing.T) {
	d := NewDecoder()
	feed(d, Transmit(Encode(Time{Hours: 1, Minutes: 2})))

	f := d.Frame()
	if f.Phase != PhaseValid || !f.Rotated {
		t.Errorf("unexpected frame: phase=%s rotated=%v", f.Phase, f.Rotated)
	}
	if f.Position != d.Position() {
		t.Errorf("frame position: got %d, want %d", f.Position, d.Position())
	}

	d.HandlePulse(200, 800)
	if f.Bits.Bit(0) != 0 {
		t.Error("frame must not change after further pulses")
	}
	if d.Bit(0) != 1 {
		t.Error("decoder should have written bit 0")
	}
}
