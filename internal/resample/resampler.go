// Package resample provides an incremental timeframe resampler.
// It consumes sealed 1-minute candles and maintains "forming" TF candle
// states that are updated in O(1) per candle per TF. When a TF bucket
// closes (i.e., a candle arrives in a new bucket), the previous TF
// candle is finalized and emitted. Forming snapshots are also emitted
// so the hot cache can publish in-progress bars.
package resample

import (
	"context"
	"log"
	"time"

	"alert-systemv1/internal/model"
)

// tfState holds the forming candle state for one (symbol, TF) pair.
type tfState struct {
	bucket  int64 // bucket start = ts - ts%tf (Unix seconds)
	candle  model.TFCandle
	started bool
}

// Resampler folds 1-minute candles into multiple timeframes.
// Designed to run in a single goroutine (single consumer).
type Resampler struct {
	tfs []int // enabled TF durations in seconds

	// Per-TF per-symbol state.
	// Key structure: states[tfIdx][symbolKey] -> *tfState
	states []map[string]*tfState

	// Staleness validation: reject candles older than the forming
	// bucket by more than this. Default: 2m. Set to 0 to disable.
	StaleTolerance time.Duration

	// Metrics hooks
	OnTFCandle    func(c model.TFCandle) // called on finalized TF candle (optional)
	OnStaleCandle func()                 // called when a stale candle is rejected (optional)
}

// New creates a resampler with the given timeframes (in seconds).
func New(tfs []int) *Resampler {
	states := make([]map[string]*tfState, len(tfs))
	for i := range states {
		states[i] = make(map[string]*tfState, 64)
	}
	return &Resampler{
		tfs:            tfs,
		states:         states,
		StaleTolerance: 2 * time.Minute,
	}
}

// Run consumes 1m candles from candleCh, resamples them into TF
// candles, and sends them to outCh. On return it finalizes every
// forming candle and closes outCh. Exits when ctx is cancelled or
// candleCh is closed; the closed-channel drain flushes blocking.
func (r *Resampler) Run(ctx context.Context, candleCh <-chan model.Candle, outCh chan<- model.TFCandle) {
	defer close(outCh)

	for {
		select {
		case <-ctx.Done():
			r.flushAll(ctx, outCh)
			return
		case c, ok := <-candleCh:
			if !ok {
				r.flushAll(context.Background(), outCh)
				return
			}
			if !r.process(ctx, c, outCh) {
				return
			}
		}
	}
}

// process handles a single 1m candle against all enabled TFs.
// This is the hot path, O(1) per TF. Returns false when an emit was
// aborted by ctx.
func (r *Resampler) process(ctx context.Context, c model.Candle, outCh chan<- model.TFCandle) bool {
	ts := c.TS.Unix()
	key := c.Key()

	for i, tf := range r.tfs {
		tf64 := int64(tf)
		bucket := ts - (ts % tf64) // align to TF boundary

		st, exists := r.states[i][key]

		// Reject candles whose bucket is behind the forming bucket by
		// more than StaleTolerance, so a straggler cannot corrupt an
		// already-advancing bucket.
		if r.StaleTolerance > 0 && exists && bucket < st.bucket {
			lag := time.Duration(st.bucket-bucket) * time.Second
			if lag > r.StaleTolerance {
				if r.OnStaleCandle != nil {
					r.OnStaleCandle()
				}
				continue
			}
		}

		if exists && bucket > st.bucket {
			// New bucket, finalize the forming candle
			st.candle.Forming = false
			if !emit(ctx, outCh, st.candle) {
				return false
			}
			if r.OnTFCandle != nil {
				r.OnTFCandle(st.candle)
			}
			exists = false
		}

		if !exists {
			newState := &tfState{
				bucket:  bucket,
				started: true,
				candle: model.TFCandle{
					Symbol:   c.Symbol,
					Exchange: c.Exchange,
					TF:       tf,
					TS:       time.Unix(bucket, 0).UTC(),
					Open:     c.Open,
					High:     c.High,
					Low:      c.Low,
					Close:    c.Close,
					Volume:   c.Volume,
					OIClose:  c.OIClose,
					OIChange: c.OIChange,
					Count:    1,
					Forming:  true,
				},
			}
			r.states[i][key] = newState
			// Emit the first forming snapshot so the hot cache sees
			// the bucket as soon as it opens.
			if !emit(ctx, outCh, newState.candle) {
				return false
			}
			continue
		}

		// Same bucket, merge OHLCV (O(1))
		fc := &st.candle
		if c.High > fc.High {
			fc.High = c.High
		}
		if c.Low < fc.Low {
			fc.Low = c.Low
		}
		fc.Close = c.Close
		fc.Volume += c.Volume
		fc.OIClose = c.OIClose
		fc.OIChange += c.OIChange
		fc.Count++

		// Emit a forming snapshot each minute. Copy the struct so the
		// consumer never races the next merge.
		snap := *fc
		if !emit(ctx, outCh, snap) {
			return false
		}
	}
	return true
}

// flushAll finalizes and emits all forming candles.
func (r *Resampler) flushAll(ctx context.Context, outCh chan<- model.TFCandle) {
	for i := range r.tfs {
		for key, st := range r.states[i] {
			if st.started {
				st.candle.Forming = false
				if !emit(ctx, outCh, st.candle) {
					return
				}
			}
			delete(r.states[i], key)
		}
	}
}

// emit sends a TF candle downstream, blocking until the consumer takes
// it or ctx is cancelled.
func emit(ctx context.Context, outCh chan<- model.TFCandle, c model.TFCandle) bool {
	select {
	case outCh <- c:
		return true
	case <-ctx.Done():
		log.Printf("[resample] emit aborted, dropping TF candle %s tf=%d ts=%v", c.Key(), c.TF, c.TS)
		return false
	}
}

// TFs returns the list of enabled timeframes.
func (r *Resampler) TFs() []int {
	return r.tfs
}
