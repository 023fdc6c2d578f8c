//go:build linux

package gpio

import (
	"context"
	"fmt"

	"github.com/inconshreveable/log15"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

var logger = log15.New("pkg", "gpio")

// RealSource reads edge events from a receiver line using the Linux GPIO character device.
type RealSource struct {
	chip      string
	line      int
	activeLow bool
}

// NewRealSource creates a source for the given chip and line offset.
// activeLow is for receivers that pull the output low during a pulse.
func NewRealSource(chip string, line int, activeLow bool) *RealSource {
	return &RealSource{chip: chip, line: line, activeLow: activeLow}
}

// Run requests the line and sends a pulse for every completed second until ctx is done.
func (s *RealSource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	events := make(chan gpiocdev.LineEvent, 64)
	handler := func(ev gpiocdev.LineEvent) {
		select {
		case events <- ev:
		default:
			logger.Warn("edge event dropped", "line", ev.Offset, "seqno", ev.Seqno)
		}
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
	}
	if s.activeLow {
		// Edges are then reported in logical terms: rising = pulse start.
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	l, err := gpiocdev.RequestLine(s.chip, s.line, opts...)
	if err != nil {
		return fmt.Errorf("request line %d on %s: %w", s.line, s.chip, err)
	}
	defer l.Close()
	logger.Info("receiver line requested", "chip", s.chip, "line", s.line, "active_low", s.activeLow)

	var (
		timer   EdgeTimer
		lastSeq uint32
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if seqGap(lastSeq, ev.LineSeqno) {
				logger.Warn("edges lost, restarting measurement", "line", ev.Offset, "from", lastSeq, "to", ev.LineSeqno)
				timer.Reset()
			}
			lastSeq = ev.LineSeqno

			p, ok := timer.Feed(Edge{
				Rising: ev.Type == gpiocdev.LineEventRisingEdge,
				At:     ev.Timestamp,
			})
			if !ok {
				continue
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
