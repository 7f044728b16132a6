package feed

import (
	"encoding/json"
	"testing"
	"time"

	"alert-systemv1/internal/model"
	"alert-systemv1/internal/ringbuf"
)

var _ Sink = (*ringbuf.Ring)(nil)

// chanSink buffers accepted ticks in a channel and refuses when full.
type chanSink struct {
	ch chan model.Tick
}

func newChanSink(capacity int) *chanSink {
	return &chanSink{ch: make(chan model.Tick, capacity)}
}

func (s *chanSink) Push(t model.Tick) bool {
	select {
	case s.ch <- t:
		return true
	default:
		return false
	}
}

func tickJSON(t *testing.T, symbol string, price int64) []byte {
	t.Helper()
	tk := model.Tick{
		Symbol:    symbol,
		Exchange:  "NSE",
		Price:     price,
		Qty:       10,
		CumVolume: 1000,
		TickTS:    time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
	}
	b, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal tick: %v", err)
	}
	return b
}
