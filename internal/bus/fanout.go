// Package bus broadcasts sealed candles from the aggregator to every
// downstream consumer over bounded channels. Sends block when a
// subscriber's buffer is full, so a slow consumer slows the pipeline
// instead of losing bars. Ticks are the only thing this system drops.
package bus

import (
	"context"
	"sync"

	"alert-systemv1/internal/model"
)

// FanOut broadcasts candles from a single input channel to N output channels.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan model.Candle
	bufSize int

	// OnBlocked is called when a send finds a subscriber's buffer full
	// and has to wait. subscriberIdx is the 0-based index of the slow
	// consumer. Used for saturation metrics.
	OnBlocked func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel.
// Must be called before Run.
func (f *FanOut) Subscribe() <-chan model.Candle {
	ch := make(chan model.Candle, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed, then closes all
// subscriber channels.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Candle) {
	defer f.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			outs := f.outputs
			f.mu.RUnlock()
			for i, ch := range outs {
				select {
				case ch <- candle:
					continue
				default:
				}
				if f.OnBlocked != nil {
					f.OnBlocked(i)
				}
				select {
				case ch <- candle:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (f *FanOut) closeAll() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.outputs {
		close(ch)
	}
}

// ChannelStat reports (length, capacity) for a subscriber channel.
// Used for reporting channel saturation percentage.
type ChannelStat struct {
	Len int
	Cap int
}

func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, ch := range f.outputs {
		stats[i] = ChannelStat{Len: len(ch), Cap: cap(ch)}
	}
	return stats
}
