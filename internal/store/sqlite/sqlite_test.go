package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"alert-systemv1/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mkCandle(symbol string, minute int, close int64) model.Candle {
	return model.Candle{
		Symbol:     symbol,
		Exchange:   "NSE",
		TS:         time.Date(2026, 3, 10, 4, 30+minute, 0, 0, time.UTC),
		Open:       close - 50,
		High:       close + 100,
		Low:        close - 120,
		Close:      close,
		Volume:     1500,
		TicksCount: 42,
		OIOpen:     900000,
		OIClose:    905000,
		OIChange:   5000,
		BidQty:     3200,
		AskQty:     1800,
		BidOrders:  41,
		AskOrders:  28,
	}
}

func TestCandleRoundTrip(t *testing.T) {
	s := testStore(t)

	c0 := mkCandle("RELIANCE", 0, 298550)
	c1 := mkCandle("RELIANCE", 1, 298700)
	if err := s.insertBatch([]model.Candle{c0, c1}); err != nil {
		t.Fatalf("insertBatch: %v", err)
	}

	got, err := s.ReadCandles("RELIANCE", 0, 10)
	if err != nil {
		t.Fatalf("ReadCandles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candles, want 2", len(got))
	}
	if !got[0].TS.Equal(c0.TS) || !got[1].TS.Equal(c1.TS) {
		t.Errorf("candles not ordered oldest first: %v, %v", got[0].TS, got[1].TS)
	}
	if got[0] != c0 {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], c0)
	}

	latest, err := s.LatestCandle("RELIANCE")
	if err != nil {
		t.Fatalf("LatestCandle: %v", err)
	}
	if latest == nil || latest.Close != 298700 {
		t.Errorf("LatestCandle = %+v, want close 298700", latest)
	}
}

func TestCandleReplaceIsIdempotent(t *testing.T) {
	s := testStore(t)

	c := mkCandle("TCS", 0, 412000)
	if err := s.insertBatch([]model.Candle{c}); err != nil {
		t.Fatalf("insertBatch: %v", err)
	}

	// Same (symbol, ts) with a corrected close must replace, not duplicate.
	c.Close = 412550
	if err := s.insertBatch([]model.Candle{c}); err != nil {
		t.Fatalf("insertBatch replay: %v", err)
	}

	got, err := s.ReadCandles("TCS", 0, 10)
	if err != nil {
		t.Fatalf("ReadCandles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows after replay, want 1", len(got))
	}
	if got[0].Close != 412550 {
		t.Errorf("close = %d, want replayed 412550", got[0].Close)
	}
}

func TestRunDrainsChannelOnClose(t *testing.T) {
	s := testStore(t)

	ch := make(chan model.Candle, 3)
	for i := 0; i < 3; i++ {
		ch <- mkCandle("INFY", i, int64(150000+i*100))
	}
	close(ch)

	s.Run(context.Background(), ch)

	got, err := s.ReadCandles("INFY", 0, 10)
	if err != nil {
		t.Fatalf("ReadCandles: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candles after drain, want 3", len(got))
	}
}

func TestTFCandleRoundTrip(t *testing.T) {
	s := testStore(t)

	tfc := model.TFCandle{
		Symbol:   "RELIANCE",
		Exchange: "NSE",
		TF:       300,
		TS:       time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
		Open:     298500,
		High:     298900,
		Low:      298300,
		Close:    298700,
		Volume:   7500,
		OIClose:  905000,
		OIChange: 12000,
		Count:    5,
	}
	if err := s.insertTFBatch([]model.TFCandle{tfc}); err != nil {
		t.Fatalf("insertTFBatch: %v", err)
	}
	// Replay the same bucket.
	if err := s.insertTFBatch([]model.TFCandle{tfc}); err != nil {
		t.Fatalf("insertTFBatch replay: %v", err)
	}

	got, err := s.ReadTFCandles("RELIANCE", 300, 0, 10)
	if err != nil {
		t.Fatalf("ReadTFCandles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d TF candles, want 1", len(got))
	}
	if got[0] != tfc {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], tfc)
	}
}

func TestRunTFCandlesDrainsChannelOnClose(t *testing.T) {
	s := testStore(t)

	ch := make(chan model.TFCandle, 2)
	for i := 0; i < 2; i++ {
		ch <- model.TFCandle{
			Symbol: "TCS", Exchange: "NSE", TF: 300,
			TS:   time.Date(2026, 3, 10, 4, 30+5*i, 0, 0, time.UTC),
			Open: 412000, High: 412500, Low: 411800, Close: 412300,
		}
	}
	close(ch)

	s.RunTFCandles(context.Background(), ch)

	got, err := s.ReadTFCandles("TCS", 300, 0, 10)
	if err != nil {
		t.Fatalf("ReadTFCandles: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d TF candles after drain, want 2", len(got))
	}
}

func TestSnapshotLatest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	older := &model.Snapshot{
		Symbol:   "RELIANCE",
		Exchange: "NSE",
		TS:       time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
		Close:    298550,
		EMA9:     model.V(2984.2),
		Regime:   model.RegimeRanging,
	}
	newer := &model.Snapshot{
		Symbol:     "RELIANCE",
		Exchange:   "NSE",
		TS:         time.Date(2026, 3, 10, 4, 31, 0, 0, time.UTC),
		Close:      298700,
		EMA9:       model.V(2985.1),
		RSI14:      model.V(61.3),
		Regime:     model.RegimeTrendingUp,
		RegimeConf: 0.8,
		BullVotes:  9,
		BearVotes:  3,
		ReadyVotes: 14,
	}
	if err := s.WriteSnapshot(ctx, older); err != nil {
		t.Fatalf("WriteSnapshot older: %v", err)
	}
	if err := s.WriteSnapshot(ctx, newer); err != nil {
		t.Fatalf("WriteSnapshot newer: %v", err)
	}

	got, err := s.LatestSnapshot("RELIANCE")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got == nil {
		t.Fatal("LatestSnapshot returned nil")
	}
	if !got.TS.Equal(newer.TS) || got.Regime != model.RegimeTrendingUp {
		t.Errorf("got snapshot %v %s, want %v TRENDING_UP", got.TS, got.Regime, newer.TS)
	}
	if !got.RSI14.Ready || got.RSI14.F != 61.3 {
		t.Errorf("RSI14 = %+v, want ready 61.3", got.RSI14)
	}
	// MACD was never computed; it must come back unready, not zero.
	if got.MACD.Ready {
		t.Errorf("MACD came back ready, want unready")
	}
	if got.BullVotes != 9 || got.BearVotes != 3 {
		t.Errorf("votes = %d/%d, want 9/3", got.BullVotes, got.BearVotes)
	}

	missing, err := s.LatestSnapshot("NOSUCH")
	if err != nil {
		t.Fatalf("LatestSnapshot missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil snapshot for unknown symbol, got %+v", missing)
	}
}

func TestAlertLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 10, 4, 39, 0, 0, time.UTC)
	a := &model.Alert{
		Symbol:     "RELIANCE",
		Exchange:   "NSE",
		TS:         ts,
		Confidence: 85,
		Grade:      model.GradeAPlus,
		Action:     model.ActionBuyCE,
		Rationale: []model.RationaleEntry{
			{Group: "oi_depth", Points: 40, Side: 1, Detail: "LONG_BUILDUP with BUYER_DOMINANT book"},
			{Group: "votes", Points: 30, Side: 1, Detail: "12 of 15 directional votes bullish"},
		},
		OICategory: model.OILongBuildup,
		Regime:     model.RegimeTrendingUp,
		Close:      298550,
		Status:     model.StatusPending,
		CreatedAt:  time.Date(2026, 3, 10, 4, 39, 2, 0, time.UTC),
	}
	if err := s.WriteAlert(ctx, a); err != nil {
		t.Fatalf("WriteAlert: %v", err)
	}
	// Replaying the same minute must not create a second row.
	if err := s.WriteAlert(ctx, a); err != nil {
		t.Fatalf("WriteAlert replay: %v", err)
	}

	channels := map[string]model.DeliveryState{
		"telegram": model.DeliverySent,
		"webhook":  model.DeliveryFailed,
	}
	if err := s.UpdateAlertStatus(ctx, "RELIANCE", ts, model.StatusPartial, channels); err != nil {
		t.Fatalf("UpdateAlertStatus: %v", err)
	}

	got, err := s.ReadAlertsSince(ts.Unix(), 10)
	if err != nil {
		t.Fatalf("ReadAlertsSince: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	out := got[0]
	if out.Status != model.StatusPartial {
		t.Errorf("status = %s, want PARTIAL", out.Status)
	}
	if out.Grade != model.GradeAPlus || out.Action != model.ActionBuyCE {
		t.Errorf("grade/action = %s/%s, want A+/BUY_CE", out.Grade, out.Action)
	}
	if len(out.Rationale) != 2 || out.Rationale[0].Group != "oi_depth" {
		t.Errorf("rationale = %+v, want 2 entries led by oi_depth", out.Rationale)
	}
	if out.Channels["telegram"] != model.DeliverySent || out.Channels["webhook"] != model.DeliveryFailed {
		t.Errorf("channels = %+v", out.Channels)
	}
	if !out.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("created_at = %v, want %v", out.CreatedAt, a.CreatedAt)
	}

	// Status update for a minute that was never persisted must fail loudly.
	err = s.UpdateAlertStatus(ctx, "RELIANCE", ts.Add(time.Minute), model.StatusDelivered, nil)
	if err == nil {
		t.Error("expected error updating status of missing alert")
	}
}

func TestReadAlertsSinceOrderAndLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := &model.Alert{
			Symbol: "SBIN", Exchange: "NSE",
			TS:         base.Add(time.Duration(i) * time.Minute),
			Confidence: 70, Grade: model.GradeA, Action: model.ActionBuyCE,
			Status: model.StatusPending, CreatedAt: base,
		}
		if err := s.WriteAlert(ctx, a); err != nil {
			t.Fatalf("WriteAlert %d: %v", i, err)
		}
	}

	got, err := s.ReadAlertsSince(base.Add(time.Minute).Unix(), 2)
	if err != nil {
		t.Fatalf("ReadAlertsSince: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d alerts, want limit 2", len(got))
	}
	if !got[0].TS.After(got[1].TS) {
		t.Errorf("alerts not newest first: %v then %v", got[0].TS, got[1].TS)
	}
	if !got[0].TS.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("newest = %v, want %v", got[0].TS, base.Add(4*time.Minute))
	}
}

func TestOICategoryIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	minute := time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC).Unix()
	if err := s.WriteOICategory(ctx, "RELIANCE", minute, model.OILongBuildup); err != nil {
		t.Fatalf("WriteOICategory: %v", err)
	}
	// Rebuild overwrites the same minute with a corrected label.
	if err := s.WriteOICategory(ctx, "RELIANCE", minute, model.OIShortCovering); err != nil {
		t.Fatalf("WriteOICategory replay: %v", err)
	}

	var n int
	var cat string
	err := s.db.QueryRow(`SELECT COUNT(*), MAX(category) FROM oi_categories WHERE symbol = ?`, "RELIANCE").Scan(&n, &cat)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 || cat != "SHORT_COVERING" {
		t.Errorf("got %d rows category %s, want 1 row SHORT_COVERING", n, cat)
	}
}

func TestCheckpointSaveLoadPrune(t *testing.T) {
	s := testStore(t)

	if data, err := s.ReadLatestCheckpointJSON(); err != nil || data != nil {
		t.Fatalf("empty store: got %q, %v, want nil, nil", data, err)
	}

	for i := 0; i < keepCheckpoints+2; i++ {
		blob := []byte(fmt.Sprintf(`{"seq":%d}`, i))
		if err := s.SaveCheckpointJSON(blob); err != nil {
			t.Fatalf("SaveCheckpointJSON %d: %v", i, err)
		}
	}

	data, err := s.ReadLatestCheckpointJSON()
	if err != nil {
		t.Fatalf("ReadLatestCheckpointJSON: %v", err)
	}
	want := fmt.Sprintf(`{"seq":%d}`, keepCheckpoints+1)
	if string(data) != want {
		t.Errorf("latest checkpoint = %s, want %s", data, want)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM checkpoints`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != keepCheckpoints {
		t.Errorf("kept %d checkpoints, want %d", n, keepCheckpoints)
	}
}

func TestEmptyQueriesReturnEmpty(t *testing.T) {
	s := testStore(t)

	if got, err := s.ReadCandles("NOSUCH", 0, 10); err != nil || len(got) != 0 {
		t.Errorf("ReadCandles empty: %v, %v", got, err)
	}
	if got, err := s.ReadTFCandles("NOSUCH", 300, 0, 10); err != nil || len(got) != 0 {
		t.Errorf("ReadTFCandles empty: %v, %v", got, err)
	}
	if got, err := s.ReadAlertsSince(0, 10); err != nil || len(got) != 0 {
		t.Errorf("ReadAlertsSince empty: %v, %v", got, err)
	}
	if c, err := s.LatestCandle("NOSUCH"); err != nil || c != nil {
		t.Errorf("LatestCandle empty: %v, %v", c, err)
	}
}
