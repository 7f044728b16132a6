package indicator

import "alert-systemv1/internal/model"

// MFI calculates the Money Flow Index: volume-weighted RSI over typical
// prices. Signed raw flows live in a circular buffer so both running
// sums stay O(1) per update.
type MFI struct {
	period  int
	buf     []float64 // signed raw money flow per candle
	idx     int
	count   int // flows received (candles - 1)
	posSum  float64
	negSum  float64
	prevTP  float64
	started bool
	current float64
}

// NewMFI creates a new MFI indicator with the given period (typically 14).
func NewMFI(period int) *MFI {
	return &MFI{
		period: period,
		buf:    make([]float64, period),
	}
}

func (m *MFI) Name() string { return "MFI_" + itoaInd(m.period) }

func (m *MFI) Update(candle model.Candle) {
	tp := float64(candle.High+candle.Low+candle.Close) / 3.0 / 100.0
	if !m.started {
		m.started = true
		m.prevTP = tp
		return
	}

	raw := tp * float64(candle.Volume)
	flow := 0.0
	switch {
	case tp > m.prevTP:
		flow = raw
	case tp < m.prevTP:
		flow = -raw
	}
	m.prevTP = tp

	if m.count >= m.period {
		old := m.buf[m.idx]
		if old > 0 {
			m.posSum -= old
		} else {
			m.negSum -= -old
		}
	}
	m.buf[m.idx] = flow
	if flow > 0 {
		m.posSum += flow
	} else {
		m.negSum += -flow
	}
	m.idx = (m.idx + 1) % m.period
	m.count++

	if m.count < m.period {
		return
	}
	if m.negSum == 0 {
		m.current = 100.0
		return
	}
	ratio := m.posSum / m.negSum
	m.current = 100.0 - (100.0 / (1.0 + ratio))
}

func (m *MFI) Value() float64 { return m.current }
func (m *MFI) Ready() bool    { return m.count >= m.period }

// Snapshot serializes the MFI state for checkpoint persistence.
func (m *MFI) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(m.buf))
	copy(bufCopy, m.buf)
	return IndicatorSnapshot{
		Type:      "MFI",
		Period:    m.period,
		Buf:       bufCopy,
		Idx:       m.idx,
		Count:     m.count,
		SumPos:    m.posSum,
		SumNeg:    m.negSum,
		PrevClose: m.prevTP,
		Started:   m.started,
		Current:   m.current,
	}
}

// RestoreFromSnapshot restores MFI state from a checkpoint.
func (m *MFI) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	m.period = snap.Period
	m.idx = snap.Idx
	m.count = snap.Count
	m.posSum = snap.SumPos
	m.negSum = snap.SumNeg
	m.prevTP = snap.PrevClose
	m.started = snap.Started
	m.current = snap.Current
	if len(snap.Buf) > 0 {
		m.buf = make([]float64, len(snap.Buf))
		copy(m.buf, snap.Buf)
	} else {
		m.buf = make([]float64, snap.Period)
	}
	return nil
}
