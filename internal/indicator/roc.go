package indicator

import "alert-systemv1/internal/model"

// ROC calculates the Rate of Change: percent move of close against the
// close period candles back.
type ROC struct {
	period  int
	buf     []float64 // closes, circular
	idx     int
	count   int
	current float64
}

// NewROC creates a new ROC indicator with the given period (typically 12).
func NewROC(period int) *ROC {
	return &ROC{
		period: period,
		buf:    make([]float64, period),
	}
}

func (r *ROC) Name() string { return "ROC_" + itoaInd(r.period) }

func (r *ROC) Update(candle model.Candle) {
	price := float64(candle.Close) / 100.0

	if r.count >= r.period {
		ref := r.buf[r.idx] // close from period candles back
		if ref != 0 {
			r.current = (price - ref) / ref * 100.0
		}
	}

	r.buf[r.idx] = price
	r.idx = (r.idx + 1) % r.period
	r.count++
}

func (r *ROC) Value() float64 { return r.current }
func (r *ROC) Ready() bool    { return r.count > r.period }

// Snapshot serializes the ROC state for checkpoint persistence.
func (r *ROC) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(r.buf))
	copy(bufCopy, r.buf)
	return IndicatorSnapshot{
		Type:    "ROC",
		Period:  r.period,
		Buf:     bufCopy,
		Idx:     r.idx,
		Count:   r.count,
		Current: r.current,
	}
}

// RestoreFromSnapshot restores ROC state from a checkpoint.
func (r *ROC) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	r.period = snap.Period
	r.idx = snap.Idx
	r.count = snap.Count
	r.current = snap.Current
	if len(snap.Buf) > 0 {
		r.buf = make([]float64, len(snap.Buf))
		copy(r.buf, snap.Buf)
	} else {
		r.buf = make([]float64, snap.Period)
	}
	return nil
}
