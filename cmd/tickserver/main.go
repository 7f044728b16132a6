// cmd/tickserver is a simulated WebSocket tick feed.
// Broadcasts random-walk ticks with order book depth and open interest
// so the alert engine can run locally without a broker connection.
//
// Ticks are model.Tick JSON, identical to the live feed wire shape:
//
//	{"symbol":"RELIANCE","exchange":"NSE","price":250130,"qty":42,
//	 "cum_volume":152300,"oi":1200500,"bids":[...],"asks":[...],"tick_ts":"..."}
//
// Price is in paise (1 INR = 100 paise), same as the live feed.
//
// Config (env vars):
//
//	TICK_SERVER_ADDR  listen address (default: ":9001")
//	TICK_SYMBOLS      comma-separated SYMBOL:EXCHANGE pairs (default: "RELIANCE:NSE,NIFTY:NSE")
//	TICK_INTERVAL_MS  broadcast interval milliseconds (default: "100")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alert-systemv1/internal/model"
)

// instrument holds per-symbol simulation state.
type instrument struct {
	Symbol    string
	Exchange  string
	Price     int64 // current simulated price in paise
	CumVolume int64
	OI        int64
}

// ---- Hub ----

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop tick
		}
	}
}

// ---- WebSocket handler ----

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[tickserver] upgrade error: %v", err)
			return
		}
		log.Printf("[tickserver] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[tickserver] client disconnected: %s", r.RemoteAddr)
		}()

		// Write pump: sends tick JSON to this client.
		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ---- Tick generator ----

const bookTickSize = 5 // paise between synthetic depth levels

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(price int64) int64 {
	pct := (rand.Float64()*0.2 - 0.1) / 100.0
	delta := int64(float64(price) * pct)
	newPrice := price + delta
	if newPrice < 100 { // floor at 1 paise
		newPrice = 100
	}
	return newPrice
}

// depth builds a synthetic five-level book on one side of price.
// side is -1 for bids, +1 for asks.
func depth(price int64, side int64) []model.DepthLevel {
	levels := make([]model.DepthLevel, 5)
	for i := range levels {
		levels[i] = model.DepthLevel{
			Price:  price + side*int64(i+1)*bookTickSize,
			Qty:    int64(rand.Intn(500) + 50),
			Orders: int64(rand.Intn(20) + 1),
		}
	}
	return levels
}

func runGenerator(h *hub, instruments []instrument, intervalMs int) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now().UTC()
		for i := range instruments {
			ins := &instruments[i]
			ins.Price = walkPrice(ins.Price)
			qty := int64(rand.Intn(100) + 1)
			ins.CumVolume += qty
			ins.OI += int64(rand.Intn(1001)) - 500
			if ins.OI < 0 {
				ins.OI = 0
			}

			t := model.Tick{
				Symbol:    ins.Symbol,
				Exchange:  ins.Exchange,
				Price:     ins.Price,
				Qty:       qty,
				CumVolume: ins.CumVolume,
				OI:        ins.OI,
				Bids:      depth(ins.Price, -1),
				Asks:      depth(ins.Price, +1),
				TickTS:    now,
			}
			b, err := json.Marshal(&t)
			if err != nil {
				continue
			}
			h.broadcast(b)
		}
	}
}

// ---- main ----

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tickserver] starting simulated tick server...")

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	symbolsEnv := envOrDefault("TICK_SYMBOLS", "RELIANCE:NSE,NIFTY:NSE")
	intervalMs := envIntOrDefault("TICK_INTERVAL_MS", 100)

	instruments := parseInstruments(symbolsEnv)
	if len(instruments) == 0 {
		log.Fatalf("[tickserver] no instruments configured via TICK_SYMBOLS")
	}
	log.Printf("[tickserver] instruments: %+v", instruments)
	log.Printf("[tickserver] broadcast interval: %dms", intervalMs)

	h := newHub()

	go runGenerator(h, instruments, intervalMs)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})

	log.Printf("[tickserver] ✅ listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[tickserver] server error: %v", err)
	}
}

// ---- helpers ----

func parseInstruments(s string) []instrument {
	// Starting prices in paise (INR × 100)
	startPrices := map[string]int64{
		"RELIANCE":  2500_00,
		"TCS":       4000_00,
		"INFY":      1520_00,
		"SBIN":      820_00,
		"NIFTY":     25660_00,
		"BANKNIFTY": 54000_00,
		"INDIAVIX":  14_00,
	}

	var result []instrument
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		seg := strings.SplitN(part, ":", 2)
		if len(seg) != 2 {
			log.Printf("[tickserver] skipping invalid symbol entry: %q", part)
			continue
		}
		symbol, exchange := strings.TrimSpace(seg[0]), strings.TrimSpace(seg[1])
		price := startPrices[symbol]
		if price == 0 {
			price = 1000_00 // default ₹1000.00
		}
		result = append(result, instrument{
			Symbol:   symbol,
			Exchange: exchange,
			Price:    price,
			OI:       1_000_000,
		})
	}
	return result
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
