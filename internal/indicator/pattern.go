package indicator

import "alert-systemv1/internal/model"

// Candlestick pattern labels.
const (
	PatternBullishEngulfing   = "BULLISH_ENGULFING"
	PatternBearishEngulfing   = "BEARISH_ENGULFING"
	PatternThreeWhiteSoldiers = "THREE_WHITE_SOLDIERS"
	PatternThreeBlackCrows    = "THREE_BLACK_CROWS"
)

// Pattern detects simple candlestick patterns over a rolling window of
// the last three sealed candles. Three-candle patterns outrank
// two-candle ones when both match.
type Pattern struct {
	window  [3]CandleSnap // chronological; [2] is the latest
	count   int
	current string
}

// NewPattern creates a pattern detector.
func NewPattern() *Pattern {
	return &Pattern{}
}

func (p *Pattern) Update(candle model.Candle) {
	p.window[0] = p.window[1]
	p.window[1] = p.window[2]
	p.window[2] = CandleSnap{
		Open:   candle.Open,
		High:   candle.High,
		Low:    candle.Low,
		Close:  candle.Close,
		Volume: candle.Volume,
	}
	if p.count < 3 {
		p.count++
	}
	p.current = p.detect()
}

// Current returns the pattern completed by the latest candle, or "".
func (p *Pattern) Current() string { return p.current }

// Ready reports whether enough candles have been seen for the shortest
// pattern (engulfing needs two).
func (p *Pattern) Ready() bool { return p.count >= 2 }

func (p *Pattern) detect() string {
	if p.count >= 3 {
		a, b, c := p.window[0], p.window[1], p.window[2]
		if bullishBody(a) && bullishBody(b) && bullishBody(c) &&
			b.Close > a.Close && c.Close > b.Close {
			return PatternThreeWhiteSoldiers
		}
		if bearishBody(a) && bearishBody(b) && bearishBody(c) &&
			b.Close < a.Close && c.Close < b.Close {
			return PatternThreeBlackCrows
		}
	}
	if p.count >= 2 {
		prev, cur := p.window[1], p.window[2]
		if bearishBody(prev) && bullishBody(cur) &&
			cur.Open <= prev.Close && cur.Close >= prev.Open {
			return PatternBullishEngulfing
		}
		if bullishBody(prev) && bearishBody(cur) &&
			cur.Open >= prev.Close && cur.Close <= prev.Open {
			return PatternBearishEngulfing
		}
	}
	return ""
}

func bullishBody(c CandleSnap) bool { return c.Close > c.Open }
func bearishBody(c CandleSnap) bool { return c.Close < c.Open }

// Snapshot serializes the pattern window for checkpoint persistence.
func (p *Pattern) Snapshot() IndicatorSnapshot {
	win := make([]CandleSnap, p.count)
	copy(win, p.window[3-p.count:])
	return IndicatorSnapshot{
		Type:   "PATTERN",
		Count:  p.count,
		Window: win,
	}
}

// RestoreFromSnapshot restores the pattern window from a checkpoint.
func (p *Pattern) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	p.count = snap.Count
	if p.count > 3 {
		p.count = 3
	}
	copy(p.window[3-p.count:], snap.Window)
	p.current = ""
	return nil
}
