package regime

import (
	"math"
	"testing"

	"alert-systemv1/internal/model"
)

func confClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: confidence %.6f, want %.6f", label, got, want)
	}
}

func trendSnap(adx, diPlus, diMinus, xfast, xslow float64) *model.Snapshot {
	return &model.Snapshot{
		Symbol: "TEST", Close: 1000000, // 10000.00
		ADX14:   model.V(adx),
		DIPlus:  model.V(diPlus),
		DIMinus: model.V(diMinus),
		XFast:   model.V(xfast),
		XSlow:   model.V(xslow),
		ATR14:   model.V(10.0), // 0.001 of close, quiet
	}
}

func TestClassify_ColdSnapshotIsUnknown(t *testing.T) {
	r, conf := Classify(&model.Snapshot{Symbol: "TEST", Close: 1000000}, DefaultThresholds())
	if r != model.RegimeUnknown {
		t.Errorf("got %s, want UNKNOWN", r)
	}
	confClose(t, "cold", conf, 0)
}

func TestClassify_TrendingUp(t *testing.T) {
	s := trendSnap(30, 28, 12, 10050, 10020)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeTrendingUp {
		t.Errorf("got %s, want TRENDING_UP", r)
	}
	// adx/50 = 30/50
	confClose(t, "trending up", conf, 0.6)
}

func TestClassify_TrendingDown_ConfidenceCapped(t *testing.T) {
	s := trendSnap(60, 10, 26, 9950, 9990)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeTrendingDown {
		t.Errorf("got %s, want TRENDING_DOWN", r)
	}
	confClose(t, "capped", conf, 0.95)
}

func TestClassify_ADXGateIsInclusive(t *testing.T) {
	s := trendSnap(25, 28, 12, 10050, 10020)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeTrendingUp {
		t.Errorf("got %s, want TRENDING_UP at the gate", r)
	}
	confClose(t, "at gate", conf, 0.5)
}

func TestClassify_DisagreementFallsToVolatility(t *testing.T) {
	// DIs point up while the EMA pair points down; ATR 160 on a
	// 10000.00 close is a 0.016 ratio.
	s := trendSnap(30, 28, 12, 9950, 9990)
	s.ATR14 = model.V(160.0)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeHighVol {
		t.Errorf("got %s, want HIGH_VOLATILITY", r)
	}
	// ratio*50 = 0.016*50
	confClose(t, "disagreement", conf, 0.8)
}

func TestClassify_ATRGateIsInclusive(t *testing.T) {
	s := trendSnap(10, 15, 14, 10010, 10000)
	s.ATR14 = model.V(150.0) // exactly 0.015 of close
	r, _ := Classify(s, DefaultThresholds())
	if r != model.RegimeHighVol {
		t.Errorf("got %s, want HIGH_VOLATILITY at the gate", r)
	}
}

func TestClassify_QuietTapeIsRanging(t *testing.T) {
	s := trendSnap(20, 15, 14, 10010, 10000)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeRanging {
		t.Errorf("got %s, want RANGING", r)
	}
	// 1 - adx/50 = 1 - 0.4
	confClose(t, "ranging", conf, 0.6)
}

func TestClassify_RangingConfidenceFloorsAtZero(t *testing.T) {
	// Strong ADX but DI and EMA disagree, and the tape is quiet:
	// 1 - 60/50 clamps to zero.
	s := trendSnap(60, 28, 12, 9950, 9990)
	r, conf := Classify(s, DefaultThresholds())
	if r != model.RegimeRanging {
		t.Errorf("got %s, want RANGING", r)
	}
	confClose(t, "floored", conf, 0)
}

func TestClassify_VolatilityOnlyReadiness(t *testing.T) {
	// ATR warms up before ADX; the classifier can call volatility
	// and ranging states before the trend inputs exist.
	quiet := &model.Snapshot{Symbol: "TEST", Close: 1000000, ATR14: model.V(10.0)}
	r, conf := Classify(quiet, DefaultThresholds())
	if r != model.RegimeRanging {
		t.Errorf("quiet: got %s, want RANGING", r)
	}
	confClose(t, "adx not ready", conf, 0.5)

	hot := &model.Snapshot{Symbol: "TEST", Close: 1000000, ATR14: model.V(200.0)}
	r, conf = Classify(hot, DefaultThresholds())
	if r != model.RegimeHighVol {
		t.Errorf("hot: got %s, want HIGH_VOLATILITY", r)
	}
	confClose(t, "hot ratio 0.02", conf, 0.95)
}

func TestClassify_EqualDIsNeverTrend(t *testing.T) {
	s := trendSnap(40, 20, 20, 10050, 10020)
	r, _ := Classify(s, DefaultThresholds())
	if r != model.RegimeRanging {
		t.Errorf("got %s, want RANGING on a DI tie", r)
	}
}
