package indicator

import "alert-systemv1/internal/model"

// applyVotes fills the per-indicator vote map and tallies on a freshly
// built snapshot. A key is present only when the indicator was ready
// to vote, so ReadyVotes is the map size. Vote conventions:
//
//	trend (EMA/VWAP):  price above the line is bullish
//	oscillators:       oversold zone is bullish, overbought bearish
//	adx:               DI direction, only while ADX clears the trend bar
//	atr:               trend direction, only while ATR/close is elevated
//	volume:            five-candle price direction, only on a spike
//	kalman:            estimate above price is bullish
func (b *Battery) applyVotes(s *model.Snapshot, price float64) {
	votes := make(map[string]int, 20)
	put := func(name string, v int) {
		votes[name] = v
		if v > 0 {
			s.BullVotes++
		} else if v < 0 {
			s.BearVotes++
		}
	}

	if b.ema9.Ready() {
		put("ema9", signVote(price-b.ema9.Value()))
	}
	if b.ema21.Ready() {
		put("ema21", signVote(price-b.ema21.Value()))
	}
	if b.ema50.Ready() {
		put("ema50", signVote(price-b.ema50.Value()))
	}
	if b.ema200.Ready() {
		put("ema200", signVote(price-b.ema200.Value()))
	}
	if b.macd.Ready() {
		put("macd", signVote(b.macd.Hist()))
	}
	if b.adx14.Ready() && b.adx14.DIReady() {
		v := 0
		if b.adx14.Value() >= b.cfg.ADXTrend {
			v = signVote(b.adx14.DIPlus() - b.adx14.DIMinus())
		}
		put("adx", v)
	}
	if b.kalman.Ready() {
		put("kalman", signVote(b.kalman.Value()-price))
	}
	if b.rsi14.Ready() {
		put("rsi", bandVote(b.rsi14.Value(), 30, 70))
	}
	if b.stoch.Ready() {
		k, d := b.stoch.Value(), b.stoch.D()
		v := 0
		if k < 20 && k > d {
			v = 1
		} else if k > 80 && k < d {
			v = -1
		}
		put("stoch", v)
	}
	if b.cci20.Ready() {
		put("cci", bandVote(b.cci20.Value(), -100, 100))
	}
	if b.mfi14.Ready() {
		put("mfi", bandVote(b.mfi14.Value(), 20, 80))
	}
	if b.roc12.Ready() {
		put("roc", signVote(b.roc12.Value()))
	}
	if b.bb20.Ready() {
		put("bb", bandVote(price, b.bb20.Lower(), b.bb20.Upper()))
	}
	if b.atr14.Ready() && b.bb20.Ready() {
		v := 0
		if b.atr14.Value()/price >= b.cfg.ATRRatio {
			v = signVote(price - b.bb20.Value())
		}
		put("atr", v)
	}
	if b.vwap.Ready() {
		put("vwap", signVote(price-b.vwap.Value()))
	}
	if b.vol.Ready() && b.closeCount == len(b.closes) {
		v := 0
		if b.vol.Value() > b.cfg.SpikeRatio {
			v = signVote(price - b.closes[b.closeIdx])
		}
		put("volume", v)
	}
	if b.obv.Ready() {
		put("obv", signVote(b.obv.Slope()))
	}
	if b.xfast.Ready() && b.xslow.Ready() {
		switch b.cross.State() {
		case model.BullishCross:
			put("cross", 1)
		case model.BearishCross:
			put("cross", -1)
		default:
			put("cross", 0)
		}
	}
	if b.pat.Ready() {
		switch b.pat.Current() {
		case PatternBullishEngulfing, PatternThreeWhiteSoldiers:
			put("pattern", 1)
		case PatternBearishEngulfing, PatternThreeBlackCrows:
			put("pattern", -1)
		default:
			put("pattern", 0)
		}
	}

	s.Votes = votes
	s.ReadyVotes = len(votes)
}

// signVote maps a difference to a vote: positive is bullish.
func signVote(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// bandVote votes +1 below the lower bound (oversold) and -1 above the
// upper bound (overbought). Inside the band is neutral.
func bandVote(v, lower, upper float64) int {
	if v < lower {
		return 1
	}
	if v > upper {
		return -1
	}
	return 0
}
