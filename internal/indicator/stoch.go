package indicator

import "alert-systemv1/internal/model"

// Stoch calculates the Stochastic Oscillator: %K as the close position
// inside the high/low range of the window, %D as an SMA over %K.
type Stoch struct {
	period  int
	dPeriod int
	bufHigh []float64
	bufLow  []float64
	idx     int
	count   int
	k       float64
	d       *SMA
}

// NewStoch creates a Stochastic with %K and %D periods (typically 14/3).
func NewStoch(period, dPeriod int) *Stoch {
	return &Stoch{
		period:  period,
		dPeriod: dPeriod,
		bufHigh: make([]float64, period),
		bufLow:  make([]float64, period),
		d:       NewSMA(dPeriod),
	}
}

func (s *Stoch) Name() string { return "STOCH_" + itoaInd(s.period) + "_" + itoaInd(s.dPeriod) }

func (s *Stoch) Update(candle model.Candle) {
	s.bufHigh[s.idx] = float64(candle.High) / 100.0
	s.bufLow[s.idx] = float64(candle.Low) / 100.0
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count < s.period {
		return
	}

	hh := s.bufHigh[0]
	ll := s.bufLow[0]
	for i := 1; i < s.period; i++ {
		if s.bufHigh[i] > hh {
			hh = s.bufHigh[i]
		}
		if s.bufLow[i] < ll {
			ll = s.bufLow[i]
		}
	}

	close_ := float64(candle.Close) / 100.0
	if hh == ll {
		s.k = 50.0 // flat window, midpoint by convention
	} else {
		s.k = 100.0 * (close_ - ll) / (hh - ll)
	}
	s.d.push(s.k)
}

// Value returns %K.
func (s *Stoch) Value() float64 { return s.k }

// D returns %D, the smoothed line.
func (s *Stoch) D() float64 { return s.d.Value() }

func (s *Stoch) Ready() bool { return s.count >= s.period+s.dPeriod-1 }

// Snapshot serializes the Stoch state for checkpoint persistence.
func (s *Stoch) Snapshot() IndicatorSnapshot {
	high := make([]float64, len(s.bufHigh))
	copy(high, s.bufHigh)
	low := make([]float64, len(s.bufLow))
	copy(low, s.bufLow)
	return IndicatorSnapshot{
		Type:    "STOCH",
		Period:  s.period,
		BufHigh: high,
		BufLow:  low,
		Idx:     s.idx,
		Count:   s.count,
		Current: s.k,
		Sub:     []IndicatorSnapshot{s.d.Snapshot()},
	}
}

// RestoreFromSnapshot restores Stoch state from a checkpoint.
func (s *Stoch) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if len(snap.Sub) != 1 {
		return errBadSnapshot("STOCH", len(snap.Sub))
	}
	s.period = snap.Period
	s.idx = snap.Idx
	s.count = snap.Count
	s.k = snap.Current
	s.bufHigh = make([]float64, len(snap.BufHigh))
	copy(s.bufHigh, snap.BufHigh)
	s.bufLow = make([]float64, len(snap.BufLow))
	copy(s.bufLow, snap.BufLow)
	if err := s.d.RestoreFromSnapshot(snap.Sub[0]); err != nil {
		return err
	}
	s.dPeriod = s.d.period
	return nil
}
