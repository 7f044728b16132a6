package indicator

import (
	"math"

	"alert-systemv1/internal/model"
)

// CCI calculates the Commodity Channel Index over typical prices
// (H+L+C)/3. The mean-deviation scan is O(period) per update.
type CCI struct {
	period  int
	buf     []float64 // typical prices
	idx     int
	count   int
	sum     float64
	current float64
}

// NewCCI creates a new CCI indicator with the given period (typically 20).
func NewCCI(period int) *CCI {
	return &CCI{
		period: period,
		buf:    make([]float64, period),
	}
}

func (c *CCI) Name() string { return "CCI_" + itoaInd(c.period) }

func (c *CCI) Update(candle model.Candle) {
	tp := float64(candle.High+candle.Low+candle.Close) / 3.0 / 100.0

	if c.count >= c.period {
		c.sum -= c.buf[c.idx]
	}
	c.buf[c.idx] = tp
	c.sum += tp
	c.idx = (c.idx + 1) % c.period
	c.count++

	if c.count < c.period {
		return
	}

	mean := c.sum / float64(c.period)
	dev := 0.0
	for i := 0; i < c.period; i++ {
		dev += math.Abs(c.buf[i] - mean)
	}
	dev /= float64(c.period)

	if dev == 0 {
		c.current = 0
		return
	}
	c.current = (tp - mean) / (0.015 * dev)
}

func (c *CCI) Value() float64 { return c.current }
func (c *CCI) Ready() bool    { return c.count >= c.period }

// Snapshot serializes the CCI state for checkpoint persistence.
func (c *CCI) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(c.buf))
	copy(bufCopy, c.buf)
	return IndicatorSnapshot{
		Type:    "CCI",
		Period:  c.period,
		Buf:     bufCopy,
		Idx:     c.idx,
		Count:   c.count,
		Sum:     c.sum,
		Current: c.current,
	}
}

// RestoreFromSnapshot restores CCI state from a checkpoint.
func (c *CCI) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	c.period = snap.Period
	c.idx = snap.Idx
	c.count = snap.Count
	c.sum = snap.Sum
	c.current = snap.Current
	if len(snap.Buf) > 0 {
		c.buf = make([]float64, len(snap.Buf))
		copy(c.buf, snap.Buf)
	} else {
		c.buf = make([]float64, snap.Period)
	}
	return nil
}
