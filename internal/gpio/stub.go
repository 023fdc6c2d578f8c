//go:build !linux

package gpio

import (
	"context"
	"errors"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns a source that always fails on non-Linux platforms.
func NewRealSource(chip string, line int, activeLow bool) *RealSource {
	return &RealSource{}
}

// Run returns an error on non-Linux platforms.
func (s *RealSource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	return errors.New("gpio: not supported on this platform (requires Linux)")
}
