package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"alert-systemv1/internal/model"
)

// trippedBreaker returns a breaker already in the open state with a
// cool-off long enough that it stays open for the whole test.
func trippedBreaker(t *testing.T) *CircuitBreaker {
	t.Helper()
	cb := NewCircuitBreaker(1, time.Hour)
	cb.Execute(func() error { return errors.New("down") })
	if cb.CurrentState() != StateOpen {
		t.Fatalf("breaker did not trip: %v", cb.CurrentState())
	}
	return cb
}

func cacheCandle(minute int) model.Candle {
	return model.Candle{
		Symbol:   "RELIANCE",
		Exchange: "NSE",
		TS:       time.Date(2026, 3, 10, 4, 30+minute, 0, 0, time.UTC),
		Open:     298500, High: 298900, Low: 298300, Close: 298700,
	}
}

func TestBufferedWriter_BuffersWhileOpen(t *testing.T) {
	cb := trippedBreaker(t)
	// The hot client is never touched while the circuit is open.
	bw := NewBufferedWriter(context.Background(), nil, cb, 100)

	buffered := 0
	bw.OnBuffer = func() { buffered++ }

	for i := 0; i < 3; i++ {
		if err := bw.WriteCandle(cacheCandle(i)); err != nil {
			t.Fatalf("WriteCandle %d: %v", i, err)
		}
	}

	if bw.PendingCount() != 3 {
		t.Errorf("PendingCount = %d, want 3", bw.PendingCount())
	}
	if buffered != 3 {
		t.Errorf("OnBuffer fired %d times, want 3", buffered)
	}
}

func TestBufferedWriter_DropsOldestAtCap(t *testing.T) {
	cb := trippedBreaker(t)
	bw := NewBufferedWriter(context.Background(), nil, cb, 2)

	for i := 0; i < 3; i++ {
		if err := bw.WriteCandle(cacheCandle(i)); err != nil {
			t.Fatalf("WriteCandle %d: %v", i, err)
		}
	}

	if bw.PendingCount() != 2 {
		t.Fatalf("PendingCount = %d, want cap 2", bw.PendingCount())
	}

	// The first write must have been dropped; minute 1 is now oldest.
	var c model.Candle
	if err := json.Unmarshal(bw.buffer[0].Data, &c); err != nil {
		t.Fatalf("unmarshal oldest: %v", err)
	}
	if want := time.Date(2026, 3, 10, 4, 31, 0, 0, time.UTC); !c.TS.Equal(want) {
		t.Errorf("oldest buffered TS = %v, want %v", c.TS, want)
	}
}

func TestBufferedWriter_CapturesEveryWriteKind(t *testing.T) {
	cb := trippedBreaker(t)
	bw := NewBufferedWriter(context.Background(), nil, cb, 100)

	c := cacheCandle(0)
	if err := bw.WriteCandle(c); err != nil {
		t.Fatalf("WriteCandle: %v", err)
	}
	tfc := model.TFCandle{Symbol: "RELIANCE", Exchange: "NSE", TF: 300, TS: c.TS, Close: c.Close, Count: 3}
	if err := bw.WriteTFCandle(tfc); err != nil {
		t.Fatalf("WriteTFCandle: %v", err)
	}
	snap := &model.Snapshot{Symbol: "RELIANCE", Exchange: "NSE", TS: c.TS, Close: c.Close}
	if err := bw.WriteSnapshot(snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	a := &model.Alert{Symbol: "RELIANCE", Exchange: "NSE", TS: c.TS, Grade: model.GradeA, Action: model.ActionBuyCE}
	if err := bw.AppendAlert(a); err != nil {
		t.Fatalf("AppendAlert: %v", err)
	}
	if err := bw.SaveCheckpoint([]byte(`{"seq":1}`)); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	if bw.PendingCount() != 5 {
		t.Fatalf("PendingCount = %d, want 5", bw.PendingCount())
	}
	wantKinds := []string{"candle", "tfcandle", "snapshot", "alert", "checkpoint"}
	for i, want := range wantKinds {
		if bw.buffer[i].Kind != want {
			t.Errorf("buffer[%d].Kind = %s, want %s", i, bw.buffer[i].Kind, want)
		}
	}
}

func TestBufferedWriter_RunTFCandlesForwardsOnlyFinal(t *testing.T) {
	cb := trippedBreaker(t)
	bw := NewBufferedWriter(context.Background(), nil, cb, 100)

	base := time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC)
	tfCh := make(chan model.TFCandle, 4)
	storeCh := make(chan model.TFCandle, 4)

	tfCh <- model.TFCandle{Symbol: "RELIANCE", TF: 300, TS: base, Count: 1, Forming: true}
	tfCh <- model.TFCandle{Symbol: "RELIANCE", TF: 300, TS: base, Count: 2, Forming: true}
	tfCh <- model.TFCandle{Symbol: "RELIANCE", TF: 300, TS: base, Count: 5, Forming: false}
	close(tfCh)

	bw.RunTFCandles(context.Background(), tfCh, storeCh)

	var stored []model.TFCandle
	for c := range storeCh {
		stored = append(stored, c)
	}
	if len(stored) != 1 || stored[0].Count != 5 || stored[0].Forming {
		t.Fatalf("stored = %+v, want only the finalized bar", stored)
	}
	// Every snapshot, forming included, reached the cache path.
	if bw.PendingCount() != 3 {
		t.Fatalf("PendingCount = %d, want 3", bw.PendingCount())
	}
}

func TestBufferedWriter_RealFailurePropagates(t *testing.T) {
	// A closed circuit passes the underlying error through and does not
	// buffer; only open-circuit rejections are buffered.
	cb := NewCircuitBreaker(5, time.Hour)
	bw := NewBufferedWriter(context.Background(), nil, cb, 100)

	errDown := errors.New("down")
	err := bw.cb.Execute(func() error { return errDown })
	if err != errDown {
		t.Fatalf("got %v, want errDown", err)
	}
	if bw.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0 for a closed-circuit failure", bw.PendingCount())
	}
}
