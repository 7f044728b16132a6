// Package regime labels indicator snapshots with a market phase.
package regime

import "alert-systemv1/internal/model"

// Thresholds gate the classification.
type Thresholds struct {
	ADXTrend float64 // ADX at or above: trend candidate
	ATRRatio float64 // ATR/close at or above: high volatility
}

// DefaultThresholds returns the standard 25 / 0.015 gates.
func DefaultThresholds() Thresholds {
	return Thresholds{ADXTrend: 25, ATRRatio: 0.015}
}

// Classify labels one snapshot and returns the label with a confidence
// in [0,1]. Priority: a trend call needs ADX at or above the gate with
// the DI ordering agreeing with the fast/slow EMA ordering; failing
// that, an elevated ATR-to-close ratio means HIGH_VOLATILITY; rest is
// RANGING. Branches whose inputs are not ready are skipped; when no
// branch has ready inputs the label is UNKNOWN with zero confidence.
func Classify(s *model.Snapshot, th Thresholds) (model.Regime, float64) {
	trendReady := s.ADX14.Ready && s.DIPlus.Ready && s.DIMinus.Ready &&
		s.XFast.Ready && s.XSlow.Ready

	if trendReady && s.ADX14.F >= th.ADXTrend {
		diUp := s.DIPlus.F > s.DIMinus.F
		diDown := s.DIPlus.F < s.DIMinus.F
		conf := clamp01(s.ADX14.F / 50)
		if conf > 0.95 {
			conf = 0.95
		}
		switch {
		case diUp && s.XFast.F > s.XSlow.F:
			return model.RegimeTrendingUp, conf
		case diDown && s.XFast.F < s.XSlow.F:
			return model.RegimeTrendingDown, conf
		}
	}

	volReady := s.ATR14.Ready && s.Close > 0
	if volReady {
		ratio := s.ATR14.F / (float64(s.Close) / 100.0)
		if ratio >= th.ATRRatio {
			conf := ratio * 50
			if conf > 0.95 {
				conf = 0.95
			}
			return model.RegimeHighVol, conf
		}
	}

	if !trendReady && !volReady {
		return model.RegimeUnknown, 0
	}

	// Quiet tape: low ADX reads as high ranging confidence.
	if s.ADX14.Ready {
		return model.RegimeRanging, clamp01(1 - s.ADX14.F/50)
	}
	return model.RegimeRanging, 0.5
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
