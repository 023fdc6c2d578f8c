package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// UserAgent is sent with every websocket handshake.
const UserAgent = "dcf77-clock"

// WebSocketSource reads pulse envelopes from a websocket live view and
// reconnects after every failure.
type WebSocketSource struct {
	URL       string
	Origin    string
	Reconnect time.Duration
	Dialer    *websocket.Dialer

	connected atomic.Bool
}

// NewWebSocketSource creates a source for the given feed URL.
func NewWebSocketSource(url, origin string, reconnect time.Duration) *WebSocketSource {
	return &WebSocketSource{
		URL:       url,
		Origin:    origin,
		Reconnect: reconnect,
		Dialer:    websocket.DefaultDialer,
	}
}

// IsConnected reports whether a websocket session is currently open.
func (s *WebSocketSource) IsConnected() bool {
	return s.connected.Load()
}

// Run keeps a session open until ctx is done.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- dcf77.Pulse) error {
	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("feed disconnected", "url", s.URL, "err", err, "retry", s.Reconnect)
		if !wait(ctx, s.Reconnect) {
			return nil
		}
	}
}

func (s *WebSocketSource) session(ctx context.Context, out chan<- dcf77.Pulse) error {
	headers := http.Header{}
	headers.Set("User-Agent", UserAgent)
	if s.Origin != "" {
		headers.Set("Origin", s.Origin)
	}

	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, s.URL, headers)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// ReadMessage has no context; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.connected.Store(true)
	defer s.connected.Store(false)
	logger.Info("feed connected", "url", s.URL)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			logger.Debug("ignoring non-text message", "type", mt, "bytes", len(data))
			continue
		}

		p, ok, err := ParseMessage(data)
		if err != nil {
			logger.Warn("bad feed message", "err", err)
			continue
		}
		if !ok {
			continue
		}
		if !send(ctx, out, p) {
			return ctx.Err()
		}
	}
}
