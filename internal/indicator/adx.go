package indicator

import "alert-systemv1/internal/model"

// ADX calculates the Average Directional Index with Wilder's method:
// smoothed true range and directional movement feed +DI/-DI, DX is the
// normalized DI spread, and ADX is Wilder-smoothed DX. DI values are
// available after period+1 candles, ADX after 2*period.
type ADX struct {
	period int
	count  int

	prevHigh  float64
	prevLow   float64
	prevClose float64

	smTR      float64
	smPlusDM  float64
	smMinusDM float64

	plusDI  float64
	minusDI float64

	dxSum   float64
	current float64 // ADX
}

// NewADX creates a new ADX indicator with the given period (typically 14).
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string { return "ADX_" + itoaInd(a.period) }

func (a *ADX) Update(candle model.Candle) {
	high := float64(candle.High) / 100.0
	low := float64(candle.Low) / 100.0
	close_ := float64(candle.Close) / 100.0
	a.count++

	if a.count == 1 {
		a.prevHigh, a.prevLow, a.prevClose = high, low, close_
		return
	}

	upMove := high - a.prevHigh
	downMove := a.prevLow - low
	plusDM, minusDM := 0.0, 0.0
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	tr := high - low
	if d := abs(high - a.prevClose); d > tr {
		tr = d
	}
	if d := abs(low - a.prevClose); d > tr {
		tr = d
	}
	a.prevHigh, a.prevLow, a.prevClose = high, low, close_

	p := float64(a.period)
	if a.count <= a.period+1 {
		// Seed phase: plain sums of the first period deltas
		a.smTR += tr
		a.smPlusDM += plusDM
		a.smMinusDM += minusDM
		if a.count < a.period+1 {
			return
		}
	} else {
		// Wilder accumulation
		a.smTR = a.smTR - a.smTR/p + tr
		a.smPlusDM = a.smPlusDM - a.smPlusDM/p + plusDM
		a.smMinusDM = a.smMinusDM - a.smMinusDM/p + minusDM
	}

	if a.smTR == 0 {
		return
	}
	a.plusDI = 100.0 * a.smPlusDM / a.smTR
	a.minusDI = 100.0 * a.smMinusDM / a.smTR

	diSum := a.plusDI + a.minusDI
	if diSum == 0 {
		return
	}
	dx := 100.0 * abs(a.plusDI-a.minusDI) / diSum

	switch {
	case a.count < 2*a.period:
		a.dxSum += dx
	case a.count == 2*a.period:
		a.dxSum += dx
		a.current = a.dxSum / p
	default:
		a.current = (a.current*(p-1) + dx) / p
	}
}

// Value returns the ADX line.
func (a *ADX) Value() float64 { return a.current }

// DIPlus returns the +DI line.
func (a *ADX) DIPlus() float64 { return a.plusDI }

// DIMinus returns the -DI line.
func (a *ADX) DIMinus() float64 { return a.minusDI }

func (a *ADX) Ready() bool { return a.count >= 2*a.period }

// DIReady reports whether +DI/-DI are usable (before ADX itself is).
func (a *ADX) DIReady() bool { return a.count >= a.period+1 }

// Snapshot serializes the ADX state for checkpoint persistence.
func (a *ADX) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "ADX",
		Period:    a.period,
		Count:     a.count,
		PrevHigh:  a.prevHigh,
		PrevLow:   a.prevLow,
		PrevClose: a.prevClose,
		SmTR:      a.smTR,
		SmPlusDM:  a.smPlusDM,
		SmMinusDM: a.smMinusDM,
		PlusDI:    a.plusDI,
		MinusDI:   a.minusDI,
		DXSum:     a.dxSum,
		Current:   a.current,
	}
}

// RestoreFromSnapshot restores ADX state from a checkpoint.
func (a *ADX) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	a.period = snap.Period
	a.count = snap.Count
	a.prevHigh = snap.PrevHigh
	a.prevLow = snap.PrevLow
	a.prevClose = snap.PrevClose
	a.smTR = snap.SmTR
	a.smPlusDM = snap.SmPlusDM
	a.smMinusDM = snap.SmMinusDM
	a.plusDI = snap.PlusDI
	a.minusDI = snap.MinusDI
	a.dxSum = snap.DXSum
	a.current = snap.Current
	return nil
}
