package indicator

import "alert-systemv1/internal/model"

// Crossover is the fast/slow EMA crossover state machine. It observes
// one (fast, slow) value pair per sealed candle and reports a cross
// only on the candle where the sign of the spread flips. A flat spread
// holds the previous sign so a touch-and-go does not double-fire.
type Crossover struct {
	prevSign int // -1, +1, or 0 before the first ready observation
	state    model.CrossState
}

// NewCrossover creates a crossover detector.
func NewCrossover() *Crossover {
	return &Crossover{state: model.NoCross}
}

// Observe feeds one fast/slow pair. ready must be false until both
// moving averages are warm; unready observations report NO_CROSS and
// leave the state machine untouched.
func (c *Crossover) Observe(fast, slow float64, ready bool) model.CrossState {
	if !ready {
		c.state = model.NoCross
		return c.state
	}

	sign := 0
	if fast > slow {
		sign = 1
	} else if fast < slow {
		sign = -1
	}

	switch {
	case sign == 0 || c.prevSign == 0:
		c.state = model.NoCross
	case sign > 0 && c.prevSign < 0:
		c.state = model.BullishCross
	case sign < 0 && c.prevSign > 0:
		c.state = model.BearishCross
	default:
		c.state = model.NoCross
	}

	if sign != 0 {
		c.prevSign = sign
	}
	return c.state
}

// State returns the cross result of the last observation.
func (c *Crossover) State() model.CrossState { return c.state }

// Snapshot serializes the crossover state for checkpoint persistence.
func (c *Crossover) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:     "CROSS",
		PrevSign: c.prevSign,
	}
}

// RestoreFromSnapshot restores crossover state from a checkpoint.
func (c *Crossover) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	c.prevSign = snap.PrevSign
	c.state = model.NoCross
	return nil
}
