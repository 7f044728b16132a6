package indicator

import "alert-systemv1/internal/model"

// LSMA calculates the Least Squares Moving Average: the endpoint of a
// linear regression fitted over the last period closes. The window scan
// is O(period) per update over a preallocated buffer.
type LSMA struct {
	period  int
	buf     []float64
	idx     int
	count   int
	current float64

	// Precomputed sums over x = 0..period-1
	sumX  float64
	sumXX float64
}

// NewLSMA creates a new LSMA indicator with the given period.
func NewLSMA(period int) *LSMA {
	n := float64(period)
	return &LSMA{
		period: period,
		buf:    make([]float64, period),
		sumX:   n * (n - 1) / 2,
		sumXX:  n * (n - 1) * (2*n - 1) / 6,
	}
}

func (l *LSMA) Name() string { return "LSMA_" + itoaInd(l.period) }

func (l *LSMA) Update(candle model.Candle) {
	price := float64(candle.Close) / 100.0

	l.buf[l.idx] = price
	l.idx = (l.idx + 1) % l.period
	l.count++

	if l.count < l.period {
		return
	}

	// Oldest value sits at idx after the write; walk the window in
	// chronological order with x = 0..period-1.
	n := float64(l.period)
	sumY, sumXY := 0.0, 0.0
	for i := 0; i < l.period; i++ {
		y := l.buf[(l.idx+i)%l.period]
		sumY += y
		sumXY += float64(i) * y
	}

	slope := (n*sumXY - l.sumX*sumY) / (n*l.sumXX - l.sumX*l.sumX)
	intercept := (sumY - slope*l.sumX) / n
	l.current = intercept + slope*(n-1)
}

func (l *LSMA) Value() float64 { return l.current }
func (l *LSMA) Ready() bool    { return l.count >= l.period }

// Snapshot serializes the LSMA state for checkpoint persistence.
func (l *LSMA) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(l.buf))
	copy(bufCopy, l.buf)
	return IndicatorSnapshot{
		Type:    "LSMA",
		Period:  l.period,
		Buf:     bufCopy,
		Idx:     l.idx,
		Count:   l.count,
		Current: l.current,
	}
}

// RestoreFromSnapshot restores LSMA state from a checkpoint.
func (l *LSMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	n := float64(snap.Period)
	l.period = snap.Period
	l.idx = snap.Idx
	l.count = snap.Count
	l.current = snap.Current
	l.sumX = n * (n - 1) / 2
	l.sumXX = n * (n - 1) * (2*n - 1) / 6
	if len(snap.Buf) > 0 {
		l.buf = make([]float64, len(snap.Buf))
		copy(l.buf, snap.Buf)
	} else {
		l.buf = make([]float64, snap.Period)
	}
	return nil
}
