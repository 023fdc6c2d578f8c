package feed

import (
	"context"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// FakeSource is a test double that sends scripted pulses.
type FakeSource struct {
	// Pulses are sent in order, then Run returns RunError.
	Pulses []dcf77.Pulse

	// RunError, if set, is returned after all pulses were sent.
	RunError error

	// Hold keeps Run blocked after the script until ctx is done.
	Hold bool

	// Sent counts delivered pulses.
	Sent int
}

// NewFakeSource creates a FakeSource with the given pulses.
func NewFakeSource(pulses []dcf77.Pulse) *FakeSource {
	return &FakeSource{Pulses: pulses}
}

// Run sends the scripted pulses.
func (f *FakeSource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	for _, p := range f.Pulses {
		if !send(ctx, out, p) {
			return nil
		}
		f.Sent++
	}
	if f.Hold {
		<-ctx.Done()
		return nil
	}
	return f.RunError
}
