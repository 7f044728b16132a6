// Package indicator provides technical indicator calculations over candle data.
//
// All indicators implement the Indicator interface, receiving sealed
// candles and producing float64 values. Updates are O(1) per candle:
// rolling windows use preallocated circular buffers, smoothed series
// keep only their accumulators. Prices are paise on the wire and
// rupees inside the math.
package indicator

import "alert-systemv1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "RSI_14", "EMA_9").
	Name() string

	// Update feeds a new sealed candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// val wraps Value/Ready into the nullable model form.
func val(ind Indicator) model.Val {
	if !ind.Ready() {
		return model.Val{}
	}
	return model.V(ind.Value())
}

// itoaInd converts int to string without importing strconv.
func itoaInd(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
