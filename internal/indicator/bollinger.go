package indicator

import (
	"math"

	"alert-systemv1/internal/model"
)

// Bollinger calculates Bollinger Bands: an SMA middle band with
// upper/lower bands k standard deviations away. Running sum and
// sum-of-squares keep the update O(1); the population deviation is
// used, matching the common charting convention.
type Bollinger struct {
	period int
	k      float64
	buf    []float64
	idx    int
	count  int
	sum    float64
	sumSq  float64

	mid, upper, lower float64
}

// NewBollinger creates Bollinger Bands with the given period and band
// width in standard deviations (typically 20, 2.0).
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{
		period: period,
		k:      k,
		buf:    make([]float64, period),
	}
}

func (b *Bollinger) Name() string { return "BB_" + itoaInd(b.period) }

func (b *Bollinger) Update(candle model.Candle) {
	price := float64(candle.Close) / 100.0

	if b.count >= b.period {
		old := b.buf[b.idx]
		b.sum -= old
		b.sumSq -= old * old
	}
	b.buf[b.idx] = price
	b.sum += price
	b.sumSq += price * price
	b.idx = (b.idx + 1) % b.period
	b.count++

	if b.count < b.period {
		return
	}

	n := float64(b.period)
	b.mid = b.sum / n
	variance := b.sumSq/n - b.mid*b.mid
	if variance < 0 {
		variance = 0 // float cancellation guard
	}
	sd := math.Sqrt(variance)
	b.upper = b.mid + b.k*sd
	b.lower = b.mid - b.k*sd
}

// Value returns the middle band.
func (b *Bollinger) Value() float64 { return b.mid }

// Upper returns the upper band.
func (b *Bollinger) Upper() float64 { return b.upper }

// Lower returns the lower band.
func (b *Bollinger) Lower() float64 { return b.lower }

func (b *Bollinger) Ready() bool { return b.count >= b.period }

// Snapshot serializes the Bollinger state for checkpoint persistence.
func (b *Bollinger) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(b.buf))
	copy(bufCopy, b.buf)
	return IndicatorSnapshot{
		Type:       "BB",
		Period:     b.period,
		Multiplier: b.k,
		Buf:        bufCopy,
		Idx:        b.idx,
		Count:      b.count,
		Sum:        b.sum,
		SumSq:      b.sumSq,
		Current:    b.mid,
	}
}

// RestoreFromSnapshot restores Bollinger state from a checkpoint.
func (b *Bollinger) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	b.period = snap.Period
	b.k = snap.Multiplier
	b.idx = snap.Idx
	b.count = snap.Count
	b.sum = snap.Sum
	b.sumSq = snap.SumSq
	b.mid = snap.Current
	if len(snap.Buf) > 0 {
		b.buf = make([]float64, len(snap.Buf))
		copy(b.buf, snap.Buf)
	} else {
		b.buf = make([]float64, snap.Period)
	}
	// Recompute bands from the restored window
	if b.count >= b.period {
		n := float64(b.period)
		variance := b.sumSq/n - b.mid*b.mid
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)
		b.upper = b.mid + b.k*sd
		b.lower = b.mid - b.k*sd
	}
	return nil
}
