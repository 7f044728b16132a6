// Package candle builds 1-minute OHLCV candles from a stream of ticks.
package candle

import (
	"context"
	"log"
	"sync"
	"time"

	"alert-systemv1/internal/markethours"
	"alert-systemv1/internal/model"
)

// candleState holds the in-progress candle for one instrument in the
// current minute bucket.
type candleState struct {
	bucket int64 // Unix second of the minute start
	candle model.Candle
}

// Aggregator builds 1-minute OHLC candles from ticks. It runs in a
// single goroutine and emits a sealed candle when the minute rolls
// over, or when a bucket sits idle past FlushGrace.
//
// Sealed minutes are never reopened: a tick for an already-sealed
// bucket is dropped as late. Ticks with price <= 0 or a timestamp
// behind the previous tick of the same instrument are dropped as
// malformed. Emits block; slow consumers hold the aggregator back
// rather than lose bars.
type Aggregator struct {
	mu     sync.Mutex
	states map[string]*candleState // key = "exchange:symbol"
	sealed map[string]int64        // key -> last sealed bucket
	prevOI map[string]int64        // key -> OI close of last sealed candle
	lastTS map[string]time.Time    // key -> TS of last accepted tick

	// FlushGrace is how long past a minute's end an idle bucket may
	// wait for a closing tick before the sweep seals it.
	FlushGrace time.Duration
	// SweepEvery is the idle-bucket check cadence.
	SweepEvery time.Duration

	// Metrics hooks (optional, set externally)
	OnLateTick      func(symbol string)
	OnMalformedTick func(symbol string)
}

// New creates a new Aggregator.
func New() *Aggregator {
	return &Aggregator{
		states:     make(map[string]*candleState),
		sealed:     make(map[string]int64),
		prevOI:     make(map[string]int64),
		lastTS:     make(map[string]time.Time),
		FlushGrace: 10 * time.Second,
		SweepEvery: 5 * time.Second,
	}
}

// Run consumes ticks from tickCh in a single goroutine, aggregates into
// 1-minute candles, and sends sealed candles to candleCh. On return it
// seals every open bucket and closes candleCh. Exits when ctx is
// cancelled or tickCh is closed; a closed tickCh is the drain path and
// flushes blocking, cancellation flushes best-effort.
func (a *Aggregator) Run(ctx context.Context, tickCh <-chan model.Tick, candleCh chan<- model.Candle) {
	defer close(candleCh)

	ticker := time.NewTicker(a.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flushAll(ctx, candleCh)
			return

		case tick, ok := <-tickCh:
			if !ok {
				a.flushAll(context.Background(), candleCh)
				return
			}
			if !a.processTick(ctx, tick, candleCh) {
				return
			}

		case <-ticker.C:
			if !a.flushIdle(ctx, candleCh) {
				return
			}
		}
	}
}

// processTick incorporates a single tick. Returns false only when a
// blocking emit was aborted by ctx.
func (a *Aggregator) processTick(ctx context.Context, tick model.Tick, candleCh chan<- model.Candle) bool {
	key := tick.Key()

	a.mu.Lock()

	if tick.Price <= 0 || tick.TickTS.Before(a.lastTS[key]) {
		cb := a.OnMalformedTick
		a.mu.Unlock()
		log.Printf("[candle] malformed tick dropped sym=%s price=%d ts=%v", tick.Symbol, tick.Price, tick.TickTS)
		if cb != nil {
			cb(tick.Symbol)
		}
		return true
	}
	a.lastTS[key] = tick.TickTS

	bucket := markethours.MinuteBucket(tick.TickTS)
	state, exists := a.states[key]

	if bucket <= a.sealed[key] && (!exists || bucket < state.bucket) {
		// Minute already sealed, never reopen
		cb := a.OnLateTick
		a.mu.Unlock()
		log.Printf("[candle] late tick dropped sym=%s ts=%v", tick.Symbol, tick.TickTS)
		if cb != nil {
			cb(tick.Symbol)
		}
		return true
	}

	if exists && bucket > state.bucket {
		// Minute rolled over, seal the old candle first
		c := a.seal(key, state)
		a.mu.Unlock()
		if !a.emit(ctx, c, candleCh) {
			return false
		}
		a.mu.Lock()
		exists = false
	}

	if !exists {
		a.states[key] = &candleState{
			bucket: bucket,
			candle: model.Candle{
				Symbol:     tick.Symbol,
				Exchange:   tick.Exchange,
				TS:         time.Unix(bucket, 0).UTC(),
				Open:       tick.Price,
				High:       tick.Price,
				Low:        tick.Price,
				Close:      tick.Price,
				Volume:     tick.Qty,
				TicksCount: 1,
				OIOpen:     tick.OI,
				OIClose:    tick.OI,
				BidQty:     tick.BidQty(),
				AskQty:     tick.AskQty(),
				BidOrders:  tick.BidOrders(),
				AskOrders:  tick.AskOrders(),
			},
		}
		a.mu.Unlock()
		return true
	}

	// Same minute, fold the tick in. Depth reflects the latest tick so
	// the sealed candle carries the book as of minute end.
	c := &state.candle
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Qty
	c.TicksCount++
	c.OIClose = tick.OI
	c.BidQty = tick.BidQty()
	c.AskQty = tick.AskQty()
	c.BidOrders = tick.BidOrders()
	c.AskOrders = tick.AskOrders()
	a.mu.Unlock()
	return true
}

// seal finalizes a bucket: fills the OI delta against the previous
// sealed candle and records the bucket so it can never reopen.
// Caller holds the lock.
func (a *Aggregator) seal(key string, state *candleState) model.Candle {
	c := state.candle
	if prev, ok := a.prevOI[key]; ok {
		c.OIChange = c.OIClose - prev
	} else {
		c.OIChange = c.OIClose - c.OIOpen
	}
	a.prevOI[key] = c.OIClose
	a.sealed[key] = state.bucket
	delete(a.states, key)
	return c
}

// flushIdle seals buckets whose minute ended more than FlushGrace ago.
// Returns false when an emit was aborted by ctx.
func (a *Aggregator) flushIdle(ctx context.Context, candleCh chan<- model.Candle) bool {
	deadline := time.Now().Add(-a.FlushGrace).Unix()

	a.mu.Lock()
	var out []model.Candle
	for key, state := range a.states {
		if state.bucket+60 < deadline {
			out = append(out, a.seal(key, state))
		}
	}
	a.mu.Unlock()

	for _, c := range out {
		if !a.emit(ctx, c, candleCh) {
			return false
		}
	}
	return true
}

// flushAll seals every open bucket. Used on drain and shutdown.
func (a *Aggregator) flushAll(ctx context.Context, candleCh chan<- model.Candle) {
	a.mu.Lock()
	var out []model.Candle
	for key, state := range a.states {
		out = append(out, a.seal(key, state))
	}
	a.mu.Unlock()

	for _, c := range out {
		if !a.emit(ctx, c, candleCh) {
			return
		}
	}
}

// emit sends a sealed candle downstream, blocking until the consumer
// takes it or ctx is cancelled.
func (a *Aggregator) emit(ctx context.Context, c model.Candle, candleCh chan<- model.Candle) bool {
	select {
	case candleCh <- c:
		return true
	case <-ctx.Done():
		log.Printf("[candle] emit aborted, dropping candle %s ts=%v", c.Key(), c.TS)
		return false
	}
}
