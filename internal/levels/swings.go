package levels

import (
	"sort"

	"alert-systemv1/internal/model"
)

// Level is a clustered support or resistance line. Strength counts the
// swing touches merged into it.
type Level struct {
	Price    float64 `json:"price"`
	Strength int     `json:"strength"`
}

// SupportResistance finds swing-point levels over the last lookback
// candles. A swing high is a high strictly above its two neighbours on
// each side; swing lows mirror that. Nearby swings merge within
// clusterPct percent of each other, and the strongest five per side
// come back in ascending price order.
func SupportResistance(candles []model.Candle, lookback int, clusterPct float64) (support, resistance []Level) {
	if lookback <= 0 {
		lookback = DefaultSwingLookback
	}
	if clusterPct <= 0 {
		clusterPct = DefaultClusterPct
	}
	if len(candles) > lookback {
		candles = candles[len(candles)-lookback:]
	}
	if len(candles) < 5 {
		return nil, nil
	}

	var swingHighs, swingLows []float64
	for i := 2; i < len(candles)-2; i++ {
		h := candles[i].High
		if h > candles[i-1].High && h > candles[i-2].High &&
			h > candles[i+1].High && h > candles[i+2].High {
			swingHighs = append(swingHighs, rupees(h))
		}
		l := candles[i].Low
		if l < candles[i-1].Low && l < candles[i-2].Low &&
			l < candles[i+1].Low && l < candles[i+2].Low {
			swingLows = append(swingLows, rupees(l))
		}
	}

	support = strongest(clusterSwings(swingLows, clusterPct), maxLevelsPerSide)
	resistance = strongest(clusterSwings(swingHighs, clusterPct), maxLevelsPerSide)
	return support, resistance
}

// clusterSwings merges swing prices whose gap to the cluster's last
// member is under tolPct percent. Each cluster becomes one level at the
// mean price with the member count as strength.
func clusterSwings(prices []float64, tolPct float64) []Level {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var out []Level
	sum, n, last := sorted[0], 1, sorted[0]
	for _, p := range sorted[1:] {
		if (p-last)/last*100 < tolPct {
			sum += p
			n++
			last = p
			continue
		}
		out = append(out, Level{Price: sum / float64(n), Strength: n})
		sum, n, last = p, 1, p
	}
	out = append(out, Level{Price: sum / float64(n), Strength: n})
	return out
}

// strongest keeps the n highest-strength levels (price breaks ties,
// lower first) and returns them sorted by price.
func strongest(levels []Level, n int) []Level {
	if len(levels) <= n {
		return levels
	}
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Strength != levels[j].Strength {
			return levels[i].Strength > levels[j].Strength
		}
		return levels[i].Price < levels[j].Price
	})
	levels = levels[:n]
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	return levels
}

// RetracementLevel is one Fibonacci ratio mapped to a price.
type RetracementLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// Retracement spans the swing range of the recent window.
type Retracement struct {
	SwingHigh float64            `json:"swing_high"`
	SwingLow  float64            `json:"swing_low"`
	Uptrend   bool               `json:"uptrend"`
	Levels    []RetracementLevel `json:"levels"`
}

var fibRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// FibRetracement computes retracement levels over the last lookback
// candles. In an uptrend ratio 0 sits at the swing high and 1 at the
// swing low; a downtrend mirrors that. ok is false when fewer than
// lookback candles are available.
func FibRetracement(candles []model.Candle, lookback int, uptrend bool) (Retracement, bool) {
	if lookback <= 0 {
		lookback = DefaultFibLookback
	}
	if len(candles) < lookback {
		return Retracement{}, false
	}
	recent := candles[len(candles)-lookback:]

	hi, lo := rupees(recent[0].High), rupees(recent[0].Low)
	for _, c := range recent[1:] {
		if h := rupees(c.High); h > hi {
			hi = h
		}
		if l := rupees(c.Low); l < lo {
			lo = l
		}
	}

	r := Retracement{SwingHigh: hi, SwingLow: lo, Uptrend: uptrend}
	diff := hi - lo
	for _, ratio := range fibRatios {
		price := lo + ratio*diff
		if uptrend {
			price = hi - ratio*diff
		}
		r.Levels = append(r.Levels, RetracementLevel{Ratio: ratio, Price: price})
	}
	return r, true
}
