package notification

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alert-systemv1/internal/model"
)

// WSFeed is the WebSocket push channel: connected clients receive the
// last N alerts on join, then every dispatched alert live. A client
// whose send buffer fills is dropped rather than slowing the feed.
type WSFeed struct {
	replay int

	mu      sync.Mutex
	clients map[*feedClient]bool
	recent  [][]byte // last N alert payloads, oldest first
	closed  bool
}

var feedUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewWSFeed creates the hub. replay is the number of recent alerts a
// new client receives on join.
func NewWSFeed(replay int) *WSFeed {
	if replay <= 0 {
		replay = 50
	}
	return &WSFeed{
		replay:  replay,
		clients: make(map[*feedClient]bool),
	}
}

func (f *WSFeed) Name() string { return "wsfeed" }

// Send fans the alert out to every connected client and records it in
// the replay window. Local fan-out cannot fail.
func (f *WSFeed) Send(ctx context.Context, a *model.Alert) error {
	payload := a.JSON()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	f.recent = append(f.recent, payload)
	if len(f.recent) > f.replay {
		f.recent = f.recent[len(f.recent)-f.replay:]
	}

	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			delete(f.clients, c)
			close(c.send)
			log.Printf("[wsfeed] dropped slow client")
		}
	}
	return nil
}

// Handler upgrades HTTP connections and registers feed clients.
func (f *WSFeed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := feedUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		c := &feedClient{
			conn: conn,
			send: make(chan []byte, f.replay+64),
			feed: f,
		}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			conn.Close()
			return
		}
		// Queue the replay window before registering so a concurrent
		// Send cannot interleave ahead of it.
		for _, p := range f.recent {
			c.send <- p
		}
		f.clients[c] = true
		count := len(f.clients)
		f.mu.Unlock()

		log.Printf("[wsfeed] client connected (%d total)", count)
		go c.writePump()
		go c.readPump()
	})
}

// ClientCount returns the number of connected clients.
func (f *WSFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and stops accepting new ones.
func (f *WSFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		close(c.send)
	}
}

func (f *WSFeed) remove(c *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
	f.mu.Unlock()
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	feed *WSFeed
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedClient) readPump() {
	defer func() {
		c.feed.remove(c)
		c.conn.Close()
		log.Printf("[wsfeed] client disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
