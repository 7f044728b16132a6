// Package levels computes session price-level analytics from stored
// candles: floor-trader pivot points, swing-point support/resistance,
// volume profile and Fibonacci retracements. Everything here is a pure
// function over candle slices; callers fetch the candles and decide
// where the session boundaries lie.
package levels

import (
	"alert-systemv1/internal/model"
)

const (
	DefaultSwingLookback = 50
	DefaultClusterPct    = 0.5
	DefaultProfileBins   = 20
	DefaultFibLookback   = 20

	maxLevelsPerSide  = 5
	minProfileCandles = 10
	valueAreaShare    = 0.70
)

// Session bundles the full analytics set served by the query API.
type Session struct {
	Symbol     string         `json:"symbol"`
	Pivots     []Pivots       `json:"pivots,omitempty"`
	Support    []Level        `json:"support"`
	Resistance []Level        `json:"resistance"`
	Profile    *VolumeProfile `json:"profile,omitempty"`
	Retrace    *Retracement   `json:"retracement,omitempty"`
}

// Analyze computes the full set for one symbol. prior holds the
// previous session's candles (pivot inputs), session the current
// session's. Sections without enough data stay empty.
func Analyze(symbol string, prior, session []model.Candle) Session {
	out := Session{
		Symbol:     symbol,
		Support:    []Level{},
		Resistance: []Level{},
	}

	if ohlc, ok := SessionOHLC(prior); ok {
		for _, m := range []PivotMethod{PivotClassic, PivotFibonacci, PivotWoodie, PivotCamarilla} {
			out.Pivots = append(out.Pivots, ComputePivots(ohlc.High, ohlc.Low, ohlc.Close, m))
		}
	}

	sup, res := SupportResistance(session, DefaultSwingLookback, DefaultClusterPct)
	if sup != nil {
		out.Support = sup
	}
	if res != nil {
		out.Resistance = res
	}

	if vp, ok := Profile(session, DefaultProfileBins); ok {
		out.Profile = &vp
	}

	if len(session) > 0 {
		up := session[len(session)-1].Close >= session[0].Open
		if fr, ok := FibRetracement(session, DefaultFibLookback, up); ok {
			out.Retrace = &fr
		}
	}
	return out
}

// OHLC is a session aggregate in rupees.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// SessionOHLC folds candles into one session OHLC. ok is false for an
// empty slice.
func SessionOHLC(candles []model.Candle) (OHLC, bool) {
	if len(candles) == 0 {
		return OHLC{}, false
	}
	agg := OHLC{
		Open:  rupees(candles[0].Open),
		High:  rupees(candles[0].High),
		Low:   rupees(candles[0].Low),
		Close: rupees(candles[len(candles)-1].Close),
	}
	for _, c := range candles[1:] {
		if h := rupees(c.High); h > agg.High {
			agg.High = h
		}
		if l := rupees(c.Low); l < agg.Low {
			agg.Low = l
		}
	}
	return agg, true
}

func rupees(paise int64) float64 { return float64(paise) / 100.0 }
