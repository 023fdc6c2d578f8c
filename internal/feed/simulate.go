package feed

import (
	"context"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// SimulatedSource transmits telegrams generated from a clock, for running
// without a receiver. Each telegram announces the following minute, as the
// real transmitter does.
type SimulatedSource struct {
	Now     func() time.Time
	Pace    float64 // 1 = real time, 0 = as fast as the consumer accepts
	Minutes int     // stop after this many telegrams; 0 runs forever
}

// NewSimulatedSource creates a source driven by now.
func NewSimulatedSource(now func() time.Time, pace float64) *SimulatedSource {
	return &SimulatedSource{Now: now, Pace: pace}
}

// TimeOf returns the telegram fields for t.
func TimeOf(t time.Time) dcf77.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return dcf77.Time{
		Hours:   t.Hour(),
		Minutes: t.Minute(),
		Day:     t.Day(),
		Weekday: wd,
		Month:   int(t.Month()),
		Year:    t.Year() % 100,
	}
}

// Run transmits consecutive minutes starting with the one after Now.
func (s *SimulatedSource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	minute := s.Now().Truncate(time.Minute)
	for n := 0; s.Minutes == 0 || n < s.Minutes; n++ {
		minute = minute.Add(time.Minute)
		for _, p := range dcf77.Transmit(dcf77.Encode(TimeOf(minute))) {
			if !wait(ctx, paced(p, s.Pace)) || !send(ctx, out, p) {
				return nil
			}
		}
		logger.Debug("simulated minute sent", "time", minute.Format("15:04"))
	}
	return nil
}
