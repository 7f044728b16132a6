package indicator

import (
	"encoding/json"
	"testing"
	"time"

	"alert-systemv1/internal/model"
)

var batteryBase = time.Date(2026, 3, 10, 3, 45, 0, 0, time.UTC) // 09:15 IST

// trendCandle builds a candle with a real body: open at the previous
// close, close one step higher, a thin wick either side.
func trendCandle(i int, ts time.Time) model.Candle {
	open := int64(30000 + 100*i)
	cl := open + 100
	return model.Candle{
		Symbol: "RELIANCE", Exchange: "NSE",
		TS:     ts,
		Open:   open,
		High:   cl + 10,
		Low:    open - 10,
		Close:  cl,
		Volume: 100,
	}
}

func TestBattery_ColdStart(t *testing.T) {
	b := NewBattery("RELIANCE", "NSE", DefaultBatteryConfig())

	c := candleVol(10000, 10)
	c.TS = batteryBase
	snap := b.Update(c)

	if snap.Symbol != "RELIANCE" || snap.Exchange != "NSE" {
		t.Errorf("identity not carried: %s %s", snap.Symbol, snap.Exchange)
	}
	if snap.Close != 10000 || !snap.TS.Equal(batteryBase) {
		t.Error("candle close/ts not carried into snapshot")
	}

	// Only the session VWAP is warm after one candle.
	if snap.ReadyVotes != 1 {
		t.Errorf("ReadyVotes = %d, want 1", snap.ReadyVotes)
	}
	if _, ok := snap.Votes["vwap"]; !ok {
		t.Error("vwap vote missing")
	}
	if snap.EMA9.Ready || snap.RSI14.Ready || snap.MACD.Ready || snap.ADX14.Ready {
		t.Error("window indicators reported ready on the first candle")
	}
	if snap.Cross != model.NoCross {
		t.Errorf("Cross = %v, want NO_CROSS", snap.Cross)
	}
	if snap.Pattern != "" {
		t.Errorf("Pattern = %q, want empty", snap.Pattern)
	}
	if snap.Regime != model.RegimeUnknown {
		t.Errorf("Regime = %v, want UNKNOWN", snap.Regime)
	}
}

func TestBattery_SteadyUptrendVotes(t *testing.T) {
	b := NewBattery("RELIANCE", "NSE", DefaultBatteryConfig())

	var snap *model.Snapshot
	for i := 0; i < 250; i++ {
		snap = b.Update(trendCandle(i, batteryBase.Add(time.Duration(i)*time.Minute)))
	}

	if snap.ReadyVotes != 19 || len(snap.Votes) != 19 {
		t.Fatalf("ReadyVotes = %d (map %d), want 19", snap.ReadyVotes, len(snap.Votes))
	}

	// Trend followers side with the ramp.
	for _, name := range []string{"ema9", "ema21", "ema50", "ema200", "roc", "vwap", "obv", "adx", "pattern"} {
		if snap.Votes[name] != 1 {
			t.Errorf("vote %s = %d, want +1", name, snap.Votes[name])
		}
	}
	// Oscillators read the same ramp as overbought, and the Kalman
	// estimate trails below price.
	for _, name := range []string{"rsi", "mfi", "cci", "kalman"} {
		if snap.Votes[name] != -1 {
			t.Errorf("vote %s = %d, want -1", name, snap.Votes[name])
		}
	}
	// Gated votes stay neutral: no volume spike, ATR ratio tiny on a
	// smooth ramp, price inside the bands, no crossover flip.
	for _, name := range []string{"volume", "atr", "bb", "cross"} {
		if snap.Votes[name] != 0 {
			t.Errorf("vote %s = %d, want 0", name, snap.Votes[name])
		}
	}

	// Tallies must agree with the map.
	bull, bear := 0, 0
	for _, v := range snap.Votes {
		if v > 0 {
			bull++
		} else if v < 0 {
			bear++
		}
	}
	if snap.BullVotes != bull || snap.BearVotes != bear {
		t.Errorf("tallies %d/%d do not match map %d/%d", snap.BullVotes, snap.BearVotes, bull, bear)
	}

	if snap.Pattern != PatternThreeWhiteSoldiers {
		t.Errorf("Pattern = %q, want %q", snap.Pattern, PatternThreeWhiteSoldiers)
	}
	if !snap.EMA200.Ready || !snap.ADX14.Ready || !snap.DIPlus.Ready || !snap.MACD.Ready ||
		!snap.BBUpper.Ready || !snap.StochK.Ready || !snap.LSMA25.Ready {
		t.Error("battery not fully warm after 250 candles")
	}
}

func TestBattery_CrossoverPairConfigurable(t *testing.T) {
	cfg := DefaultBatteryConfig()
	cfg.CrossFast = 2
	cfg.CrossSlow = 3
	b := NewBattery("NIFTY", "NSE", cfg)

	// EMA(2) crosses EMA(3) upward on the fifth candle and holds.
	prices := []int64{10000, 10000, 10000, 9800, 10600, 10700}
	wantCross := []model.CrossState{
		model.NoCross, model.NoCross, model.NoCross,
		model.NoCross, // spread turns negative, sign established
		model.BullishCross,
		model.NoCross, // still above, must not re-fire
	}
	wantVote := []int{0, 0, 0, 0, 1, 0}

	for i, p := range prices {
		c := candleVol(p, 100)
		c.TS = batteryBase.Add(time.Duration(i) * time.Minute)
		snap := b.Update(c)
		if snap.Cross != wantCross[i] {
			t.Errorf("candle %d: Cross = %v, want %v", i, snap.Cross, wantCross[i])
		}
		if i >= 2 {
			if got, ok := snap.Votes["cross"]; !ok || got != wantVote[i] {
				t.Errorf("candle %d: cross vote = %d (present=%v), want %d", i, got, ok, wantVote[i])
			}
		}
	}
}

func TestBattery_VolumeSpikeVote(t *testing.T) {
	b := NewBattery("RELIANCE", "NSE", DefaultBatteryConfig())

	ts := func(i int) time.Time { return batteryBase.Add(time.Duration(i) * time.Minute) }
	update := func(i int, closePaise, vol int64) *model.Snapshot {
		c := candleVol(closePaise, vol)
		c.TS = ts(i)
		return b.Update(c)
	}

	// Quiet tape: steady volume, gentle rise.
	var snap *model.Snapshot
	price := int64(10000)
	for i := 0; i < 25; i++ {
		price += 20
		snap = update(i, price, 100)
	}
	if snap.Votes["volume"] != 0 {
		t.Errorf("quiet tape: volume vote = %d, want 0", snap.Votes["volume"])
	}

	// Spike with rising price: bullish.
	for i := 25; i < 30; i++ {
		price += 20
		snap = update(i, price, 400)
	}
	if snap.VolRatio.F <= 1.5 {
		t.Fatalf("VolRatio = %.3f, want > 1.5", snap.VolRatio.F)
	}
	if snap.Votes["volume"] != 1 {
		t.Errorf("rising spike: volume vote = %d, want +1", snap.Votes["volume"])
	}

	// Spike continues while price falls: bearish.
	for i := 30; i < 35; i++ {
		price -= 40
		snap = update(i, price, 400)
	}
	if snap.Votes["volume"] != -1 {
		t.Errorf("falling spike: volume vote = %d, want -1", snap.Votes["volume"])
	}
}

func TestBattery_CheckpointRestore_NoDivergence(t *testing.T) {
	cfg := DefaultBatteryConfig()
	a := NewBattery("RELIANCE", "NSE", cfg)

	mk := func(i int) model.Candle {
		cl := int64(25000 + 150*(i%7) - 80*(i%3) + 10*i)
		return model.Candle{
			Symbol: "RELIANCE", Exchange: "NSE",
			TS:     batteryBase.Add(time.Duration(i) * time.Minute),
			Open:   cl - 60,
			High:   cl + 90,
			Low:    cl - 120,
			Close:  cl,
			Volume: int64(80 + 15*(i%5)),
		}
	}

	for i := 0; i < 60; i++ {
		a.Update(mk(i))
	}

	// Checkpoints travel through JSON.
	raw, err := json.Marshal(a.Snapshot())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var bs BatterySnapshot
	if err := json.Unmarshal(raw, &bs); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	b := NewBattery("RELIANCE", "NSE", cfg)
	if err := b.Restore(bs); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !b.LastTS().Equal(a.LastTS()) {
		t.Error("LastTS not restored")
	}

	for i := 60; i < 80; i++ {
		sa := a.Update(mk(i))
		sb := b.Update(mk(i))
		if string(sa.JSON()) != string(sb.JSON()) {
			t.Fatalf("snapshots diverged at candle %d:\n%s\n%s", i, sa.JSON(), sb.JSON())
		}
	}
}

func TestBattery_RestoreSkipsMismatchedCrossPair(t *testing.T) {
	a := NewBattery("NIFTY", "NSE", DefaultBatteryConfig()) // pair 9/21
	for i := 0; i < 30; i++ {
		a.Update(trendCandle(i, batteryBase.Add(time.Duration(i)*time.Minute)))
	}
	snap := a.Snapshot()
	if snap.Inds["xfast"].Period != 9 {
		t.Fatalf("checkpoint xfast period = %d, want 9", snap.Inds["xfast"].Period)
	}

	cfg := DefaultBatteryConfig()
	cfg.CrossFast = 5
	cfg.CrossSlow = 10
	b := NewBattery("NIFTY", "NSE", cfg)
	if err := b.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// The reconfigured pair starts cold instead of inheriting 9/21 state.
	got := b.Snapshot()
	if got.Inds["xfast"].Period != 5 || got.Inds["xfast"].Count != 0 {
		t.Errorf("xfast = period %d count %d, want fresh period 5", got.Inds["xfast"].Period, got.Inds["xfast"].Count)
	}
	// Everything else restores normally.
	if got.Inds["rsi14"].Count != snap.Inds["rsi14"].Count {
		t.Error("rsi14 state not restored")
	}
}

func TestBattery_RestoreToleratesMissingSlot(t *testing.T) {
	a := NewBattery("NIFTY", "NSE", DefaultBatteryConfig())
	for i := 0; i < 30; i++ {
		a.Update(trendCandle(i, batteryBase.Add(time.Duration(i)*time.Minute)))
	}
	snap := a.Snapshot()
	delete(snap.Inds, "rsi14")

	b := NewBattery("NIFTY", "NSE", DefaultBatteryConfig())
	if err := b.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if b.Snapshot().Inds["rsi14"].Count != 0 {
		t.Error("missing slot should restart cold")
	}
}

func TestBattery_VWAPResetsAcrossSessions(t *testing.T) {
	b := NewBattery("NIFTY", "NSE", DefaultBatteryConfig())

	for i := 0; i < 5; i++ {
		b.Update(trendCandle(i, batteryBase.Add(time.Duration(i)*time.Minute)))
	}

	// First candle of the next session: VWAP anchors to that candle's
	// typical price alone.
	c := candleHLCV(11200, 10800, 11000, 50)
	c.TS = batteryBase.Add(24 * time.Hour)
	snap := b.Update(c)

	wantTP := float64(11200+10800+11000) / 3.0 / 100.0
	if !snap.VWAP.Ready {
		t.Fatal("VWAP should be ready on the first candle of a session")
	}
	if diff := snap.VWAP.F - wantTP; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("VWAP = %.4f, want %.4f", snap.VWAP.F, wantTP)
	}
}
