package indicator

import "alert-systemv1/internal/model"

// MACD calculates Moving Average Convergence Divergence: the spread of
// a fast and a slow EMA, with a signal EMA over the spread. The signal
// line starts feeding once both legs are ready, so Ready() means the
// whole triple is usable.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD with the given fast/slow/signal periods
// (typically 12/26/9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return "MACD_" + itoaInd(m.fast.period) + "_" + itoaInd(m.slow.period) }

func (m *MACD) Update(candle model.Candle) {
	m.fast.Update(candle)
	m.slow.Update(candle)
	if m.fast.Ready() && m.slow.Ready() {
		m.signal.push(m.fast.Value() - m.slow.Value())
	}
}

// Value returns the MACD line (fast EMA - slow EMA).
func (m *MACD) Value() float64 { return m.fast.Value() - m.slow.Value() }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Hist returns the histogram (MACD line - signal line).
func (m *MACD) Hist() float64 { return m.Value() - m.Signal() }

func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }

// Snapshot serializes the MACD state for checkpoint persistence.
func (m *MACD) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type: "MACD",
		Sub: []IndicatorSnapshot{
			m.fast.Snapshot(),
			m.slow.Snapshot(),
			m.signal.Snapshot(),
		},
	}
}

// RestoreFromSnapshot restores MACD state from a checkpoint.
func (m *MACD) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if len(snap.Sub) != 3 {
		return errBadSnapshot("MACD", len(snap.Sub))
	}
	if err := m.fast.RestoreFromSnapshot(snap.Sub[0]); err != nil {
		return err
	}
	if err := m.slow.RestoreFromSnapshot(snap.Sub[1]); err != nil {
		return err
	}
	return m.signal.RestoreFromSnapshot(snap.Sub[2])
}
