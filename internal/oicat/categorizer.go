// Package oicat classifies open-interest flow for futures candles.
//
// The category is the sign pair of (price delta, OI delta) between two
// consecutive sealed candles of the same instrument:
//
//	price up,   OI up   -> LONG_BUILDUP
//	price down, OI up   -> SHORT_BUILDUP
//	price up,   OI down -> SHORT_COVERING
//	price down, OI down -> LONG_UNWIND
//	either delta zero   -> NEUTRAL
//
// A gap between the two candles does not matter; the deltas are always
// taken against the last sealed candle.
package oicat

import (
	"alert-systemv1/internal/model"
)

// Categorizer tracks the previous sealed candle per futures instrument.
// Only configured futures symbols are categorized.
type Categorizer struct {
	futures map[string]string // symbol -> underlying
	prev    map[string]model.Candle
}

// New creates a Categorizer for the given futures map (symbol -> underlying).
func New(futures map[string]string) *Categorizer {
	return &Categorizer{
		futures: futures,
		prev:    make(map[string]model.Candle, len(futures)),
	}
}

// Categorize classifies one sealed candle. The second return is false
// for symbols that are not configured futures. The first candle ever
// seen for an instrument has no delta pair and reads NEUTRAL.
func (k *Categorizer) Categorize(c model.Candle) (model.OICategory, bool) {
	if _, ok := k.futures[c.Symbol]; !ok {
		return "", false
	}
	prev, seen := k.prev[c.Key()]
	k.prev[c.Key()] = c
	if !seen {
		return model.OINeutral, true
	}
	return Classify(c.Close-prev.Close, c.OIClose-prev.OIClose), true
}

// Underlying maps a futures symbol to its underlying, or "".
func (k *Categorizer) Underlying(symbol string) string {
	return k.futures[symbol]
}

// Classify maps a (price delta, OI delta) sign pair to a category.
func Classify(dPrice, dOI int64) model.OICategory {
	switch {
	case dPrice > 0 && dOI > 0:
		return model.OILongBuildup
	case dPrice < 0 && dOI > 0:
		return model.OIShortBuildup
	case dPrice > 0 && dOI < 0:
		return model.OIShortCovering
	case dPrice < 0 && dOI < 0:
		return model.OILongUnwind
	default:
		return model.OINeutral
	}
}
