package indicator

import "alert-systemv1/internal/model"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for zero-allocation hot path.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA_" + itoaInd(s.period) }

func (s *SMA) Update(candle model.Candle) {
	s.push(float64(candle.Close) / 100.0) // paise -> rupees
}

// push feeds a raw value. MeanWindow reuses the SMA core for
// non-price series (volume).
func (s *SMA) push(v float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Snapshot serializes the SMA state for checkpoint persistence.
func (s *SMA) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(s.buf))
	copy(bufCopy, s.buf)
	return IndicatorSnapshot{
		Type:    "SMA",
		Period:  s.period,
		Buf:     bufCopy,
		Idx:     s.idx,
		Count:   s.count,
		Sum:     s.sum,
		Current: s.current,
	}
}

// RestoreFromSnapshot restores SMA state from a checkpoint.
func (s *SMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	s.period = snap.Period
	s.idx = snap.Idx
	s.count = snap.Count
	s.sum = snap.Sum
	s.current = snap.Current
	if len(snap.Buf) > 0 {
		s.buf = make([]float64, len(snap.Buf))
		copy(s.buf, snap.Buf)
	} else {
		s.buf = make([]float64, snap.Period)
	}
	return nil
}
