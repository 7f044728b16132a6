package indicator

import "alert-systemv1/internal/model"

// VolRatio calculates the volume spike ratio: mean volume over a short
// window divided by mean volume over a long window. A value above the
// configured spike threshold marks unusual participation.
type VolRatio struct {
	fast    *SMA
	slow    *SMA
	current float64
}

// NewVolRatio creates a VolRatio with the given fast/slow windows
// (typically 5/20).
func NewVolRatio(fastPeriod, slowPeriod int) *VolRatio {
	return &VolRatio{
		fast: NewSMA(fastPeriod),
		slow: NewSMA(slowPeriod),
	}
}

func (v *VolRatio) Name() string {
	return "VOLRATIO_" + itoaInd(v.fast.period) + "_" + itoaInd(v.slow.period)
}

func (v *VolRatio) Update(candle model.Candle) {
	vol := float64(candle.Volume)
	v.fast.push(vol)
	v.slow.push(vol)

	if v.slow.Ready() && v.slow.Value() > 0 {
		v.current = v.fast.Value() / v.slow.Value()
	}
}

func (v *VolRatio) Value() float64 { return v.current }
func (v *VolRatio) Ready() bool    { return v.slow.Ready() && v.slow.Value() > 0 }

// Snapshot serializes the VolRatio state for checkpoint persistence.
func (v *VolRatio) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:    "VOLRATIO",
		Current: v.current,
		Sub: []IndicatorSnapshot{
			v.fast.Snapshot(),
			v.slow.Snapshot(),
		},
	}
}

// RestoreFromSnapshot restores VolRatio state from a checkpoint.
func (v *VolRatio) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if len(snap.Sub) != 2 {
		return errBadSnapshot("VOLRATIO", len(snap.Sub))
	}
	v.current = snap.Current
	if err := v.fast.RestoreFromSnapshot(snap.Sub[0]); err != nil {
		return err
	}
	return v.slow.RestoreFromSnapshot(snap.Sub[1])
}
