package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"alert-systemv1/internal/model"
)

// pendingWrite is one write captured while the circuit was open.
type pendingWrite struct {
	Kind string // "candle", "tfcandle", "snapshot", "alert", "checkpoint"
	Data []byte // JSON payload
}

// BufferedWriter guards the hot cache with a circuit breaker. While the
// circuit is open every write lands in a bounded local buffer, oldest
// dropped first, and the buffer replays when the circuit closes again.
type BufferedWriter struct {
	hot *Hot
	cb  *CircuitBreaker
	ctx context.Context

	mu     sync.Mutex
	buffer []pendingWrite
	maxBuf int

	// Callbacks for metrics. Optional.
	OnBuffer func()
	OnFlush  func(count int)
}

// NewBufferedWriter wraps hot with the given breaker. maxBufferSize
// caps the local buffer; <= 0 selects the default of 10000.
func NewBufferedWriter(ctx context.Context, hot *Hot, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		hot:    hot,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingWrite, 0, 256),
		maxBuf: maxBufferSize,
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bw.flush()
		}
	}

	return bw
}

// Run consumes sealed candles and caches each one. Blocks until ctx is
// cancelled or candleCh is closed.
func (bw *BufferedWriter) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candleCh:
			if !ok {
				return
			}
			if err := bw.WriteCandle(c); err != nil {
				log.Printf("[redis] cache candle %s: %v", c.Key(), err)
			}
		}
	}
}

// RunTFCandles consumes resampled bars, caching every snapshot and
// forwarding only finalized bars to storeCh. Forming snapshots exist
// for the hot cache alone; the relational store never sees them. A nil
// storeCh disables forwarding. Closes storeCh on return.
func (bw *BufferedWriter) RunTFCandles(ctx context.Context, tfCh <-chan model.TFCandle, storeCh chan<- model.TFCandle) {
	if storeCh != nil {
		defer close(storeCh)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-tfCh:
			if !ok {
				return
			}
			if err := bw.WriteTFCandle(c); err != nil {
				log.Printf("[redis] cache tf candle %s tf=%d: %v", c.Key(), c.TF, err)
			}
			if storeCh == nil || c.Forming {
				continue
			}
			select {
			case storeCh <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

// WriteCandle caches a candle through the circuit breaker. A write
// rejected by an open circuit is buffered, not lost.
func (bw *BufferedWriter) WriteCandle(c model.Candle) error {
	err := bw.cb.Execute(func() error { return bw.hot.WriteCandle(bw.ctx, &c) })
	if errors.Is(err, ErrCircuitOpen) {
		bw.bufferWrite("candle", c.JSON())
		return nil
	}
	return err
}

// WriteTFCandle caches a resampled bar through the circuit breaker.
func (bw *BufferedWriter) WriteTFCandle(c model.TFCandle) error {
	err := bw.cb.Execute(func() error { return bw.hot.WriteTFCandle(bw.ctx, &c) })
	if errors.Is(err, ErrCircuitOpen) {
		bw.bufferWrite("tfcandle", c.JSON())
		return nil
	}
	return err
}

// WriteSnapshot caches a snapshot through the circuit breaker.
func (bw *BufferedWriter) WriteSnapshot(snap *model.Snapshot) error {
	err := bw.cb.Execute(func() error { return bw.hot.WriteSnapshot(bw.ctx, snap) })
	if errors.Is(err, ErrCircuitOpen) {
		bw.bufferWrite("snapshot", snap.JSON())
		return nil
	}
	return err
}

// AppendAlert appends to the alert stream through the circuit breaker.
func (bw *BufferedWriter) AppendAlert(a *model.Alert) error {
	err := bw.cb.Execute(func() error { return bw.hot.AppendAlert(bw.ctx, a) })
	if errors.Is(err, ErrCircuitOpen) {
		bw.bufferWrite("alert", a.JSON())
		return nil
	}
	return err
}

// SaveCheckpoint stores a checkpoint blob through the circuit breaker.
func (bw *BufferedWriter) SaveCheckpoint(data []byte) error {
	err := bw.cb.Execute(func() error { return bw.hot.SaveCheckpoint(bw.ctx, data) })
	if errors.Is(err, ErrCircuitOpen) {
		bw.bufferWrite("checkpoint", data)
		return nil
	}
	return err
}

func (bw *BufferedWriter) bufferWrite(kind string, data []byte) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		bw.buffer = bw.buffer[1:]
		log.Printf("[redis-buffer] buffer full, dropped oldest write")
	}
	bw.buffer = append(bw.buffer, pendingWrite{Kind: kind, Data: data})

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays buffered writes once the circuit closes. If the server
// fails again mid-replay the remainder goes back to the buffer.
func (bw *BufferedWriter) flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	toFlush := bw.buffer
	bw.buffer = make([]pendingWrite, 0, 256)
	bw.mu.Unlock()

	for i, pw := range toFlush {
		if err := bw.replay(pw); err != nil {
			log.Printf("[redis-buffer] flush stopped at %d/%d: %v", i, len(toFlush), err)
			bw.requeue(toFlush[i:])
			return
		}
	}

	log.Printf("[redis-buffer] flushed %d buffered writes", len(toFlush))
	if bw.OnFlush != nil {
		bw.OnFlush(len(toFlush))
	}
}

func (bw *BufferedWriter) replay(pw pendingWrite) error {
	switch pw.Kind {
	case "candle":
		var c model.Candle
		if json.Unmarshal(pw.Data, &c) != nil {
			return nil
		}
		return bw.hot.WriteCandle(bw.ctx, &c)
	case "tfcandle":
		var c model.TFCandle
		if json.Unmarshal(pw.Data, &c) != nil {
			return nil
		}
		return bw.hot.WriteTFCandle(bw.ctx, &c)
	case "snapshot":
		var snap model.Snapshot
		if json.Unmarshal(pw.Data, &snap) != nil {
			return nil
		}
		return bw.hot.WriteSnapshot(bw.ctx, &snap)
	case "alert":
		var a model.Alert
		if json.Unmarshal(pw.Data, &a) != nil {
			return nil
		}
		return bw.hot.AppendAlert(bw.ctx, &a)
	case "checkpoint":
		return bw.hot.SaveCheckpoint(bw.ctx, pw.Data)
	}
	return nil
}

func (bw *BufferedWriter) requeue(rest []pendingWrite) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.buffer = append(rest, bw.buffer...)
	for len(bw.buffer) > bw.maxBuf {
		bw.buffer = bw.buffer[1:]
	}
}

// PendingCount returns the number of buffered writes awaiting replay.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped hot cache for direct reads.
func (bw *BufferedWriter) Underlying() *Hot {
	return bw.hot
}
