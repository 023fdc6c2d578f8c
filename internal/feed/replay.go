package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// ReplaySource reads newline-delimited pulse envelopes, e.g. a saved feed log.
type ReplaySource struct {
	r    io.Reader
	pace float64
}

// NewReplaySource reads from r. pace scales the recorded timing (1 = real time);
// 0 replays as fast as the consumer accepts.
func NewReplaySource(r io.Reader, pace float64) *ReplaySource {
	return &ReplaySource{r: r, pace: pace}
}

// Run sends every pulse in the stream and returns at EOF.
// Blank lines and non-pulse messages are skipped; malformed lines are logged and skipped.
func (s *ReplaySource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	sc := bufio.NewScanner(s.r)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}

		p, ok, err := ParseMessage(data)
		if err != nil {
			logger.Warn("skipping replay line", "line", line, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if !wait(ctx, paced(p, s.pace)) || !send(ctx, out, p) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read replay: %w", err)
	}
	logger.Info("replay finished", "lines", line)
	return nil
}
