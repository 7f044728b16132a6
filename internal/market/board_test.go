package market

import (
	"testing"
	"time"

	"alert-systemv1/internal/model"
)

var boardMinute = time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC)

func bankingBoard() *Board {
	return NewBoard(BoardConfig{
		SectorOf: map[string]string{
			"HDFCBANK":  "BANKING",
			"ICICIBANK": "BANKING",
			"SBIN":      "BANKING",
			"AXISBANK":  "BANKING",
			"KOTAKBANK": "BANKING",
			"TCS":       "IT",
		},
	})
}

func TestBoard_SectorBias(t *testing.T) {
	b := bankingBoard()

	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasNeutral {
		t.Errorf("empty minute: got %s, want NEUTRAL", got)
	}

	// 4 of 5 bullish = 0.8 agreement
	b.Post("HDFCBANK", boardMinute, 7)
	b.Post("ICICIBANK", boardMinute, 3)
	b.Post("SBIN", boardMinute, 1)
	b.Post("AXISBANK", boardMinute, 5)
	b.Post("KOTAKBANK", boardMinute, -2)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasBullish {
		t.Errorf("4/5 bulls: got %s, want BULLISH", got)
	}

	// 3 of 5 = 0.6 does not clear the strict > 0.60 gate
	b.Post("AXISBANK", boardMinute, -5)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasNeutral {
		t.Errorf("3/5 bulls: got %s, want NEUTRAL", got)
	}

	// 4 of 5 bearish
	b.Post("HDFCBANK", boardMinute, -1)
	b.Post("ICICIBANK", boardMinute, -4)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasBearish {
		t.Errorf("4/5 bears: got %s, want BEARISH", got)
	}

	// a neutral vote reports but agrees with neither side
	b.Post("SBIN", boardMinute, 0)
	b.Post("ICICIBANK", boardMinute, 2)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasNeutral {
		t.Errorf("3 bears of 5 reporting: got %s, want NEUTRAL (0.6 is not > 0.6)", got)
	}
}

func TestBoard_SectorBias_IgnoresOtherSectors(t *testing.T) {
	b := bankingBoard()

	b.Post("TCS", boardMinute, 9)
	b.Post("HDFCBANK", boardMinute, -1)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasBearish {
		t.Errorf("single bearish member: got %s, want BEARISH", got)
	}
	if got := b.SectorBias("IT", boardMinute); got != model.BiasBullish {
		t.Errorf("single bullish member: got %s, want BULLISH", got)
	}
	if got := b.SectorBias("", boardMinute); got != model.BiasNeutral {
		t.Errorf("unknown sector: got %s, want NEUTRAL", got)
	}
}

func indexBoard() *Board {
	return NewBoard(BoardConfig{
		Groups: []IndexGroup{
			{Name: "NIFTY", Symbols: []string{"NIFTY"}, Weight: 0.3},
			{Name: "BANKNIFTY", Symbols: []string{"BANKNIFTY"}, Weight: 0.4},
			{Name: "TOP10", Symbols: []string{"RELIANCE", "TCS", "HDFCBANK", "INFY"}, Weight: 0.2},
			{Name: "FINNIFTY", Symbols: []string{"FINNIFTY"}, Weight: 0.1},
		},
	})
}

func TestBoard_IndexBias(t *testing.T) {
	b := indexBoard()

	if got := b.IndexBias(boardMinute); got != model.BiasMixed {
		t.Errorf("empty minute: got %s, want MIXED", got)
	}

	// NIFTY alone carries 0.3, not enough
	b.Post("NIFTY", boardMinute, 4)
	if got := b.IndexBias(boardMinute); got != model.BiasMixed {
		t.Errorf("0.3 bull share: got %s, want MIXED", got)
	}

	// NIFTY + BANKNIFTY = 0.7 > 0.5; absent groups contribute zero
	b.Post("BANKNIFTY", boardMinute, 6)
	if got := b.IndexBias(boardMinute); got != model.BiasBullish {
		t.Errorf("0.7 bull share: got %s, want BULLISH", got)
	}

	// opposing heavyweights cancel below the gate
	b.Post("BANKNIFTY", boardMinute, -6)
	if got := b.IndexBias(boardMinute); got != model.BiasMixed {
		t.Errorf("0.3 bull vs 0.4 bear: got %s, want MIXED", got)
	}

	// bear side: BANKNIFTY 0.4 + FINNIFTY 0.1 + half of TOP10 0.1 = 0.6
	b.Post("NIFTY", boardMinute, 0)
	b.Post("FINNIFTY", boardMinute, -2)
	b.Post("RELIANCE", boardMinute, -1)
	b.Post("TCS", boardMinute, 3)
	if got := b.IndexBias(boardMinute); got != model.BiasBearish {
		t.Errorf("0.6 bear share: got %s, want BEARISH", got)
	}
}

func TestBoard_IndexBias_PartialGroupShares(t *testing.T) {
	b := indexBoard()

	// TOP10: two of four report, both bullish -> full 0.2 for the group
	b.Post("RELIANCE", boardMinute, 2)
	b.Post("TCS", boardMinute, 5)
	b.Post("BANKNIFTY", boardMinute, 8)
	// 0.2 + 0.4 = 0.6 > 0.5
	if got := b.IndexBias(boardMinute); got != model.BiasBullish {
		t.Errorf("partial group at full agreement: got %s, want BULLISH", got)
	}

	// split the reporting half of TOP10: group contributes 0.1 a side
	b.Post("TCS", boardMinute, -5)
	// bull 0.1 + 0.4 = 0.5, not strictly above the gate
	if got := b.IndexBias(boardMinute); got != model.BiasMixed {
		t.Errorf("0.5 bull share exactly: got %s, want MIXED", got)
	}
}

func TestBoard_VIXStates(t *testing.T) {
	b := NewBoard(BoardConfig{})

	if got := b.VIXState(); got != model.VIXUnknown {
		t.Errorf("before any candle: got %s, want UNKNOWN", got)
	}
	if _, seen := b.VIXValue(); seen {
		t.Error("VIXValue reported seen before any candle")
	}

	cases := []struct {
		closePaise int64
		want       model.VIXState
	}{
		{1150, model.VIXLow},     // 11.50
		{1199, model.VIXLow},     // 11.99
		{1200, model.VIXNormal},  // 12.00 is not < 12
		{1499, model.VIXNormal},  // 14.99
		{1500, model.VIXHigh},    // 15.00
		{1799, model.VIXHigh},    // 17.99
		{1800, model.VIXExtreme}, // 18.00
		{2400, model.VIXExtreme}, // 24.00
	}
	for _, tc := range cases {
		b.ObserveVIX(model.Candle{Symbol: "INDIAVIX", TS: boardMinute, Close: tc.closePaise})
		if got := b.VIXState(); got != tc.want {
			t.Errorf("VIX close %d: got %s, want %s", tc.closePaise, got, tc.want)
		}
	}

	v, seen := b.VIXValue()
	if !seen || v != 24.0 {
		t.Errorf("VIXValue: got (%.2f, %v), want (24.00, true)", v, seen)
	}
}

func TestBoard_ViewFor(t *testing.T) {
	b := NewBoard(BoardConfig{
		SectorOf: map[string]string{"HDFCBANK": "BANKING", "ICICIBANK": "BANKING"},
		Groups: []IndexGroup{
			{Name: "BANKNIFTY", Symbols: []string{"BANKNIFTY"}, Weight: 0.6},
		},
	})

	b.Post("HDFCBANK", boardMinute, 3)
	b.Post("ICICIBANK", boardMinute, 1)
	b.Post("BANKNIFTY", boardMinute, 2)
	b.ObserveVIX(model.Candle{Symbol: "INDIAVIX", TS: boardMinute, Close: 1350})

	v := b.ViewFor("HDFCBANK", boardMinute)
	if v.Sector != "BANKING" {
		t.Errorf("sector: got %q, want BANKING", v.Sector)
	}
	if v.SectorBias != model.BiasBullish {
		t.Errorf("sector bias: got %s, want BULLISH", v.SectorBias)
	}
	if v.IndexBias != model.BiasBullish {
		t.Errorf("index bias: got %s, want BULLISH", v.IndexBias)
	}
	if v.VIX != model.VIXNormal {
		t.Errorf("vix: got %s, want NORMAL", v.VIX)
	}
	if v.VIXValue != 13.50 {
		t.Errorf("vix value: got %.2f, want 13.50", v.VIXValue)
	}

	// a symbol with no sector mapping degrades to NEUTRAL sector evidence
	u := b.ViewFor("RELIANCE", boardMinute)
	if u.Sector != "" || u.SectorBias != model.BiasNeutral {
		t.Errorf("unmapped symbol: got (%q, %s), want (\"\", NEUTRAL)", u.Sector, u.SectorBias)
	}
}

func TestBoard_PrunesOldMinutes(t *testing.T) {
	b := bankingBoard()

	b.Post("HDFCBANK", boardMinute, 1)
	b.Post("ICICIBANK", boardMinute, 1)
	b.Post("SBIN", boardMinute, 1)
	b.Post("AXISBANK", boardMinute, 1)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasBullish {
		t.Fatalf("setup: got %s, want BULLISH", got)
	}

	// posts five minutes later push the old minute past retention
	later := boardMinute.Add(5 * time.Minute)
	b.Post("HDFCBANK", later, -1)

	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasNeutral {
		t.Errorf("pruned minute: got %s, want NEUTRAL", got)
	}
	if got := b.SectorBias("BANKING", later); got != model.BiasBearish {
		t.Errorf("current minute: got %s, want BEARISH", got)
	}
}

func TestBoard_VoteOverwriteSameMinute(t *testing.T) {
	b := bankingBoard()

	b.Post("HDFCBANK", boardMinute, 5)
	b.Post("HDFCBANK", boardMinute, -5)
	if got := b.SectorBias("BANKING", boardMinute); got != model.BiasBearish {
		t.Errorf("replayed vote: got %s, want BEARISH (last write wins)", got)
	}
}
