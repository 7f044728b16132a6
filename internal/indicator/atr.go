package indicator

import "alert-systemv1/internal/model"

// ATR calculates the Average True Range with Wilder's smoothing.
// TR = max(high-low, |high-prevClose|, |low-prevClose|).
type ATR struct {
	period    int
	count     int
	prevClose float64
	sum       float64 // TR accumulator for the SMA seed
	current   float64
}

// NewATR creates a new ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return "ATR_" + itoaInd(a.period) }

func (a *ATR) Update(candle model.Candle) {
	high := float64(candle.High) / 100.0
	low := float64(candle.Low) / 100.0
	close_ := float64(candle.Close) / 100.0
	a.count++

	if a.count == 1 {
		// First candle: TR is just the range
		a.sum = high - low
		a.prevClose = close_
		return
	}

	tr := high - low
	if d := abs(high - a.prevClose); d > tr {
		tr = d
	}
	if d := abs(low - a.prevClose); d > tr {
		tr = d
	}
	a.prevClose = close_

	if a.count <= a.period {
		a.sum += tr
		if a.count == a.period {
			a.current = a.sum / float64(a.period)
		}
		return
	}

	// Wilder's smoothing
	p := float64(a.period)
	a.current = (a.current*(p-1) + tr) / p
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count >= a.period }

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Snapshot serializes the ATR state for checkpoint persistence.
func (a *ATR) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "ATR",
		Period:    a.period,
		Count:     a.count,
		PrevClose: a.prevClose,
		Sum:       a.sum,
		Current:   a.current,
	}
}

// RestoreFromSnapshot restores ATR state from a checkpoint.
func (a *ATR) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	a.period = snap.Period
	a.count = snap.Count
	a.prevClose = snap.PrevClose
	a.sum = snap.Sum
	a.current = snap.Current
	return nil
}
