package indicator

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// feedAndCompare snapshots src, restores into dst, then feeds both the
// same tail and requires identical values at every step.
func feedAndCompare(t *testing.T, label string, src, dst interface {
	Snapshottable
	Indicator
}, tail []int64) {
	t.Helper()

	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("%s restore failed: %v", label, err)
	}
	if src.Value() != dst.Value() {
		t.Errorf("%s value mismatch after restore: %.6f vs %.6f", label, src.Value(), dst.Value())
	}
	if src.Ready() != dst.Ready() {
		t.Errorf("%s ready mismatch after restore: %v vs %v", label, src.Ready(), dst.Ready())
	}

	for i, p := range tail {
		src.Update(candle(p))
		dst.Update(candle(p))
		if math.Abs(src.Value()-dst.Value()) > 1e-10 {
			t.Errorf("%s diverged at tail candle %d: %.8f vs %.8f", label, i, src.Value(), dst.Value())
		}
		if src.Ready() != dst.Ready() {
			t.Errorf("%s ready diverged at tail candle %d", label, i)
		}
	}
}

var snapshotWarmup = []int64{10000, 10150, 10100, 10320, 10280, 10400, 10390, 10510, 10450, 10600}
var snapshotTail = []int64{10550, 10700, 10680, 10820, 10790}

func TestSnapshot_SMA_RoundTrip(t *testing.T) {
	src := NewSMA(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "SMA", src, NewSMA(5), snapshotTail)
}

func TestSnapshot_EMA_RoundTrip(t *testing.T) {
	src := NewEMA(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "EMA", src, NewEMA(5), snapshotTail)
}

func TestSnapshot_SMMA_RoundTrip(t *testing.T) {
	src := NewSMMA(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "SMMA", src, NewSMMA(5), snapshotTail)
}

func TestSnapshot_LSMA_RoundTrip(t *testing.T) {
	src := NewLSMA(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "LSMA", src, NewLSMA(5), snapshotTail)
}

func TestSnapshot_MACD_RoundTrip(t *testing.T) {
	src := NewMACD(3, 5, 2)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	dst := NewMACD(3, 5, 2)
	feedAndCompare(t, "MACD", src, dst, snapshotTail)
	if math.Abs(src.Signal()-dst.Signal()) > 1e-10 {
		t.Errorf("MACD signal diverged: %.8f vs %.8f", src.Signal(), dst.Signal())
	}
}

func TestSnapshot_RSI_RoundTrip(t *testing.T) {
	src := NewRSI(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "RSI", src, NewRSI(5), snapshotTail)
}

func TestSnapshot_RSI_MidSeed_RoundTrip(t *testing.T) {
	// Snapshot while still inside the accumulation phase.
	src := NewRSI(8)
	for _, p := range snapshotWarmup[:4] {
		src.Update(candle(p))
	}
	feedAndCompare(t, "RSI mid-seed", src, NewRSI(8), append(snapshotWarmup[4:], snapshotTail...))
}

func TestSnapshot_Stoch_RoundTrip(t *testing.T) {
	src := NewStoch(5, 3)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	dst := NewStoch(5, 3)
	feedAndCompare(t, "Stoch", src, dst, snapshotTail)
	if math.Abs(src.D()-dst.D()) > 1e-10 {
		t.Errorf("Stoch D diverged: %.8f vs %.8f", src.D(), dst.D())
	}
}

func TestSnapshot_CCI_RoundTrip(t *testing.T) {
	src := NewCCI(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "CCI", src, NewCCI(5), snapshotTail)
}

func TestSnapshot_MFI_RoundTrip(t *testing.T) {
	src := NewMFI(5)
	for i, p := range snapshotWarmup {
		src.Update(candleHLCV(p+50, p-50, p, int64(10+i)))
	}
	snap := src.Snapshot()
	dst := NewMFI(5)
	if err := dst.RestoreFromSnapshot(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for i, p := range snapshotTail {
		c := candleHLCV(p+50, p-50, p, int64(20+i))
		src.Update(c)
		dst.Update(c)
		if math.Abs(src.Value()-dst.Value()) > 1e-10 {
			t.Errorf("MFI diverged at tail candle %d: %.8f vs %.8f", i, src.Value(), dst.Value())
		}
	}
}

func TestSnapshot_ROC_RoundTrip(t *testing.T) {
	src := NewROC(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "ROC", src, NewROC(5), snapshotTail)
}

func TestSnapshot_Bollinger_RoundTrip(t *testing.T) {
	src := NewBollinger(5, 2.0)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	dst := NewBollinger(5, 2.0)
	feedAndCompare(t, "Bollinger", src, dst, snapshotTail)
	if math.Abs(src.Upper()-dst.Upper()) > 1e-10 || math.Abs(src.Lower()-dst.Lower()) > 1e-10 {
		t.Error("Bollinger bands diverged after restore")
	}
}

func TestSnapshot_ATR_RoundTrip(t *testing.T) {
	src := NewATR(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "ATR", src, NewATR(5), snapshotTail)
}

func TestSnapshot_ADX_RoundTrip(t *testing.T) {
	src := NewADX(3)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	dst := NewADX(3)
	feedAndCompare(t, "ADX", src, dst, snapshotTail)
	if math.Abs(src.DIPlus()-dst.DIPlus()) > 1e-10 || math.Abs(src.DIMinus()-dst.DIMinus()) > 1e-10 {
		t.Error("DI lines diverged after restore")
	}
}

func TestSnapshot_VWAP_RoundTrip(t *testing.T) {
	day := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)

	src := NewVWAP()
	for i, p := range snapshotWarmup {
		c := candleHLCV(p+50, p-50, p, int64(10+i))
		c.TS = day.Add(time.Duration(i) * time.Minute)
		src.Update(c)
	}

	dst := NewVWAP()
	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for i, p := range snapshotTail {
		c := candleHLCV(p+50, p-50, p, 15)
		c.TS = day.Add(time.Duration(len(snapshotWarmup)+i) * time.Minute)
		src.Update(c)
		dst.Update(c)
		if math.Abs(src.Value()-dst.Value()) > 1e-10 {
			t.Errorf("VWAP diverged at tail candle %d", i)
		}
	}

	// The restored session key must survive, so a same-day candle does
	// not reset the accumulators.
	if !src.Ready() || !dst.Ready() {
		t.Error("VWAP should remain ready within the session")
	}
}

func TestSnapshot_OBV_RoundTrip(t *testing.T) {
	src := NewOBV()
	for i, p := range snapshotWarmup {
		src.Update(candleVol(p, int64(10+i)))
	}
	dst := NewOBV()
	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for i, p := range snapshotTail {
		c := candleVol(p, int64(30+i))
		src.Update(c)
		dst.Update(c)
		if src.Value() != dst.Value() || src.Slope() != dst.Slope() {
			t.Errorf("OBV diverged at tail candle %d", i)
		}
	}
}

func TestSnapshot_VolRatio_RoundTrip(t *testing.T) {
	src := NewVolRatio(2, 5)
	for i, p := range snapshotWarmup {
		src.Update(candleVol(p, int64(100+10*i)))
	}
	dst := NewVolRatio(2, 5)
	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for i, p := range snapshotTail {
		c := candleVol(p, int64(400+10*i))
		src.Update(c)
		dst.Update(c)
		if math.Abs(src.Value()-dst.Value()) > 1e-10 {
			t.Errorf("VolRatio diverged at tail candle %d", i)
		}
	}
}

func TestSnapshot_Kalman_RoundTrip(t *testing.T) {
	src := NewKalman(1e-5, 1e-1)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}
	feedAndCompare(t, "Kalman", src, NewKalman(1e-5, 1e-1), snapshotTail)
}

func TestSnapshot_Crossover_RoundTrip(t *testing.T) {
	src := NewCrossover()
	src.Observe(99, 100, true) // establish negative sign

	dst := NewCrossover()
	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// The restored sign memory must produce the same cross on the next
	// observation.
	if got := dst.Observe(101, 100, true); got != src.Observe(101, 100, true) {
		t.Error("crossover state diverged after restore")
	}
}

func TestSnapshot_Pattern_RoundTrip(t *testing.T) {
	src := NewPattern()
	src.Update(patternCandle(10000, 10400))
	src.Update(patternCandle(10300, 10700))

	dst := NewPattern()
	if err := dst.RestoreFromSnapshot(src.Snapshot()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// Third soldier completes the pattern on both.
	src.Update(patternCandle(10600, 11000))
	dst.Update(patternCandle(10600, 11000))
	if src.Current() != dst.Current() {
		t.Errorf("pattern diverged: %q vs %q", src.Current(), dst.Current())
	}
	if src.Current() != PatternThreeWhiteSoldiers {
		t.Errorf("got %q, want %q", src.Current(), PatternThreeWhiteSoldiers)
	}
}

func TestSnapshot_SurvivesJSON(t *testing.T) {
	// Checkpoints travel through JSON; the union must round-trip.
	src := NewRSI(5)
	for _, p := range snapshotWarmup {
		src.Update(candle(p))
	}

	raw, err := json.Marshal(src.Snapshot())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var snap IndicatorSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	dst := NewRSI(5)
	if err := dst.RestoreFromSnapshot(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for _, p := range snapshotTail {
		src.Update(candle(p))
		dst.Update(candle(p))
		if math.Abs(src.Value()-dst.Value()) > 1e-10 {
			t.Fatal("RSI diverged after JSON round trip")
		}
	}
}

func TestSnapshot_MACD_BadSubCount(t *testing.T) {
	m := NewMACD(3, 5, 2)
	if err := m.RestoreFromSnapshot(IndicatorSnapshot{Type: "MACD"}); err == nil {
		t.Error("expected error for snapshot without sub parts")
	}
}
