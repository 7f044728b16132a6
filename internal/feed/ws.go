package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"alert-systemv1/internal/model"
)

// WSConfig configures the WebSocket tick source.
type WSConfig struct {
	// URL of the tick WebSocket server, e.g. "ws://localhost:9001/ws".
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *WSConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// WSSource reads plain-JSON ticks from a WebSocket server. The expected
// message format on the wire is identical to model.Tick:
//
//	{"symbol":"RELIANCE","exchange":"NSE","price":185005000,"qty":10,"tick_ts":"..."}
//
// Disconnects trigger automatic reconnection with exponential backoff.
type WSSource struct {
	cfg WSConfig

	// OnReconnect is called each time the connection is lost and a
	// reconnect is scheduled.
	OnReconnect func()

	// OnTick is called for every decoded tick, accepted or not.
	OnTick func(model.Tick)

	// OnDrop is called when the sink refuses a tick.
	OnDrop func()
}

// NewWSSource validates the URL and returns a WebSocket source.
func NewWSSource(cfg WSConfig) (*WSSource, error) {
	cfg.defaults()
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("feed: parse ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("feed: ws url scheme must be ws or wss, got %q", u.Scheme)
	}
	return &WSSource{cfg: cfg}, nil
}

// Name identifies the source in logs.
func (s *WSSource) Name() string { return "ws" }

// Run connects to the server and streams ticks into sink. Blocks until
// ctx is cancelled. Reconnects automatically on disconnect, doubling
// the delay up to MaxReconnectDelay.
func (s *WSSource) Run(ctx context.Context, sink Sink) error {
	delay := s.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := s.runOnce(ctx, sink)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}

		log.Printf("[feed] ws disconnected (%v), reconnecting in %s", err, delay)
		if s.OnReconnect != nil {
			s.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.MaxReconnectDelay {
			delay = s.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect
// or ctx cancel.
func (s *WSSource) runOnce(ctx context.Context, sink Sink) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[feed] ws connected to %s", s.cfg.URL)

	// Watcher unblocks the read loop on cancellation by closing the
	// connection. done keeps it from outliving this attempt.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var tick model.Tick
		if err := json.Unmarshal(raw, &tick); err != nil {
			log.Printf("[feed] ws parse error: %v (raw: %s)", err, raw)
			continue
		}
		if tick.Symbol == "" {
			log.Printf("[feed] ws skipping tick with empty symbol")
			continue
		}
		s.deliver(tick, sink)
	}
}

func (s *WSSource) deliver(t model.Tick, sink Sink) {
	if s.OnTick != nil {
		s.OnTick(t)
	}
	if !sink.Push(t) && s.OnDrop != nil {
		s.OnDrop()
	}
}
