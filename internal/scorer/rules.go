package scorer

import (
	"alert-systemv1/config"
	"alert-systemv1/internal/model"
)

// evalRule walks a predicate tree against one context. A node evaluates
// false when its form is empty, its field is unknown, or the referenced
// indicator is not ready, so a misconfigured rule can never fire.
func evalRule(n config.ExprNode, ctx model.AlertContext) bool {
	switch {
	case len(n.All) > 0:
		for _, c := range n.All {
			if !evalRule(c, ctx) {
				return false
			}
		}
		return true
	case len(n.Any) > 0:
		for _, c := range n.Any {
			if evalRule(c, ctx) {
				return true
			}
		}
		return false
	case n.Not != nil:
		return !evalRule(*n.Not, ctx)
	case n.Field != "":
		v, ok := resolveField(n.Field, ctx)
		if !ok {
			return false
		}
		return compare(v, n.Op, n.Value)
	}
	return false
}

func compare(v float64, op string, want float64) bool {
	switch op {
	case "gt":
		return v > want
	case "ge":
		return v >= want
	case "lt":
		return v < want
	case "le":
		return v <= want
	case "eq":
		return v == want
	}
	return false
}

// resolveField maps a rule field name to a numeric value. Indicator
// names follow the snapshot JSON tags; categorical context fields are
// exposed as 0/1 projections (e.g. "oi_bullish").
func resolveField(name string, ctx model.AlertContext) (float64, bool) {
	b := func(v bool) (float64, bool) {
		if v {
			return 1, true
		}
		return 0, true
	}

	switch name {
	case "close":
		return float64(ctx.Close) / 100.0, true
	case "oi_bullish":
		return b(ctx.OICategory.Bullish())
	case "oi_bearish":
		return b(ctx.OICategory.Bearish())
	case "depth_buyer":
		return b(ctx.DepthBias == model.DepthBuyerDominant)
	case "depth_seller":
		return b(ctx.DepthBias == model.DepthSellerDominant)
	case "sector_bullish":
		return b(ctx.SectorBias == model.BiasBullish)
	case "sector_bearish":
		return b(ctx.SectorBias == model.BiasBearish)
	case "index_bullish":
		return b(ctx.IndexBias == model.BiasBullish)
	case "index_bearish":
		return b(ctx.IndexBias == model.BiasBearish)
	case "vix_low":
		return b(ctx.VIX == model.VIXLow)
	case "vix_normal":
		return b(ctx.VIX == model.VIXNormal)
	case "vix_high":
		return b(ctx.VIX == model.VIXHigh)
	case "vix_extreme":
		return b(ctx.VIX == model.VIXExtreme)
	case "regime_trending_up":
		return b(ctx.Regime == model.RegimeTrendingUp)
	case "regime_trending_down":
		return b(ctx.Regime == model.RegimeTrendingDown)
	case "regime_ranging":
		return b(ctx.Regime == model.RegimeRanging)
	case "regime_high_vol":
		return b(ctx.Regime == model.RegimeHighVol)
	}

	s := ctx.Snapshot
	if s == nil {
		return 0, false
	}
	switch name {
	case "net_vote":
		return float64(s.NetVote()), true
	case "bull_votes":
		return float64(s.BullVotes), true
	case "bear_votes":
		return float64(s.BearVotes), true
	case "ready_votes":
		return float64(s.ReadyVotes), true
	case "regime_conf":
		return s.RegimeConf, true
	case "bullish_cross":
		return b(s.Cross == model.BullishCross)
	case "bearish_cross":
		return b(s.Cross == model.BearishCross)
	}

	var v model.Val
	switch name {
	case "ema9":
		v = s.EMA9
	case "ema21":
		v = s.EMA21
	case "ema50":
		v = s.EMA50
	case "ema200":
		v = s.EMA200
	case "smma7":
		v = s.SMMA7
	case "lsma25":
		v = s.LSMA25
	case "xfast":
		v = s.XFast
	case "xslow":
		v = s.XSlow
	case "macd":
		v = s.MACD
	case "macd_signal":
		v = s.MACDSignal
	case "macd_hist":
		v = s.MACDHist
	case "rsi14":
		v = s.RSI14
	case "stoch_k":
		v = s.StochK
	case "stoch_d":
		v = s.StochD
	case "cci20":
		v = s.CCI20
	case "mfi14":
		v = s.MFI14
	case "roc12":
		v = s.ROC12
	case "bb_upper":
		v = s.BBUpper
	case "bb_mid":
		v = s.BBMid
	case "bb_lower":
		v = s.BBLower
	case "atr14":
		v = s.ATR14
	case "adx14":
		v = s.ADX14
	case "di_plus":
		v = s.DIPlus
	case "di_minus":
		v = s.DIMinus
	case "vwap":
		v = s.VWAP
	case "obv":
		v = s.OBV
	case "vol_ratio":
		v = s.VolRatio
	case "kalman":
		v = s.Kalman
	default:
		return 0, false
	}
	if !v.Ready {
		return 0, false
	}
	return v.F, true
}
