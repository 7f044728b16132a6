package oicat

import (
	"testing"
	"time"

	"alert-systemv1/internal/model"
)

func futCandle(ts int64, close, oi int64) model.Candle {
	return model.Candle{
		Symbol:   "RELIANCE-FUT",
		Exchange: "NFO",
		TS:       time.Unix(ts, 0).UTC(),
		Close:    close,
		OIClose:  oi,
	}
}

func TestClassify_SignPairs(t *testing.T) {
	cases := []struct {
		dPrice, dOI int64
		want        model.OICategory
	}{
		{+100, +50, model.OILongBuildup},
		{-100, +50, model.OIShortBuildup},
		{+100, -50, model.OIShortCovering},
		{-100, -50, model.OILongUnwind},
		{0, +50, model.OINeutral},
		{+100, 0, model.OINeutral},
		{0, 0, model.OINeutral},
	}
	for _, tc := range cases {
		got := Classify(tc.dPrice, tc.dOI)
		if got != tc.want {
			t.Errorf("Classify(%d, %d) = %s, want %s", tc.dPrice, tc.dOI, got, tc.want)
		}
	}
}

func TestCategorizer_FirstCandleIsNeutral(t *testing.T) {
	k := New(map[string]string{"RELIANCE-FUT": "RELIANCE"})

	cat, ok := k.Categorize(futCandle(1700000000, 250000, 1000))
	if !ok {
		t.Fatal("expected futures symbol to be categorized")
	}
	if cat != model.OINeutral {
		t.Errorf("first candle: expected NEUTRAL, got %s", cat)
	}
}

func TestCategorizer_Sequence(t *testing.T) {
	k := New(map[string]string{"RELIANCE-FUT": "RELIANCE"})
	base := int64(1700000000)

	k.Categorize(futCandle(base, 250000, 1000))

	cat, _ := k.Categorize(futCandle(base+60, 250500, 1100))
	if cat != model.OILongBuildup {
		t.Errorf("expected LONG_BUILDUP, got %s", cat)
	}

	cat, _ = k.Categorize(futCandle(base+120, 250100, 1200))
	if cat != model.OIShortBuildup {
		t.Errorf("expected SHORT_BUILDUP, got %s", cat)
	}

	cat, _ = k.Categorize(futCandle(base+180, 250400, 1150))
	if cat != model.OIShortCovering {
		t.Errorf("expected SHORT_COVERING, got %s", cat)
	}

	cat, _ = k.Categorize(futCandle(base+240, 250000, 1100))
	if cat != model.OILongUnwind {
		t.Errorf("expected LONG_UNWIND, got %s", cat)
	}
}

// A minute gap between sealed candles still categorizes against the
// last sealed candle.
func TestCategorizer_GapPairCategorizesNormally(t *testing.T) {
	k := New(map[string]string{"RELIANCE-FUT": "RELIANCE"})
	base := int64(1700000000)

	k.Categorize(futCandle(base, 250000, 1000))
	// Next sealed candle is 7 minutes later
	cat, _ := k.Categorize(futCandle(base+420, 251000, 1300))
	if cat != model.OILongBuildup {
		t.Errorf("gap pair: expected LONG_BUILDUP, got %s", cat)
	}
}

func TestCategorizer_NonFuturesSkipped(t *testing.T) {
	k := New(map[string]string{"RELIANCE-FUT": "RELIANCE"})

	eq := model.Candle{Symbol: "RELIANCE", Exchange: "NSE", Close: 250000, OIClose: 0}
	if _, ok := k.Categorize(eq); ok {
		t.Error("equity symbol must not be categorized")
	}
}

func TestCategorizer_Underlying(t *testing.T) {
	k := New(map[string]string{"RELIANCE-FUT": "RELIANCE"})
	if got := k.Underlying("RELIANCE-FUT"); got != "RELIANCE" {
		t.Errorf("expected RELIANCE, got %q", got)
	}
	if got := k.Underlying("TCS"); got != "" {
		t.Errorf("expected empty underlying, got %q", got)
	}
}
