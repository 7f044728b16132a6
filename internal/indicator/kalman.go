package indicator

import "alert-systemv1/internal/model"

// Kalman is a one-dimensional Kalman filter over closes: a constant
// process model with small process variance and larger measurement
// variance, so the estimate tracks price with lag proportional to
// noise. The estimate sitting above/below price reads as a smoothed
// trend signal.
type Kalman struct {
	processVar     float64
	measurementVar float64

	estimate float64
	errCov   float64
	count    int
}

// NewKalman creates a Kalman filter with the given variances
// (typically 1e-5 process, 1e-1 measurement).
func NewKalman(processVar, measurementVar float64) *Kalman {
	return &Kalman{
		processVar:     processVar,
		measurementVar: measurementVar,
		errCov:         1.0,
	}
}

func (k *Kalman) Name() string { return "KALMAN" }

func (k *Kalman) Update(candle model.Candle) {
	price := float64(candle.Close) / 100.0
	k.count++

	if k.count == 1 {
		k.estimate = price
		return
	}

	// Predict
	k.errCov += k.processVar

	// Update
	gain := k.errCov / (k.errCov + k.measurementVar)
	k.estimate += gain * (price - k.estimate)
	k.errCov *= 1 - gain
}

func (k *Kalman) Value() float64 { return k.estimate }
func (k *Kalman) Ready() bool    { return k.count >= 2 }

// Snapshot serializes the Kalman state for checkpoint persistence.
// The variances are construction parameters and are not persisted.
func (k *Kalman) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:    "KALMAN",
		Count:   k.count,
		Current: k.estimate,
		ErrCov:  k.errCov,
	}
}

// RestoreFromSnapshot restores Kalman state from a checkpoint.
func (k *Kalman) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	k.count = snap.Count
	k.estimate = snap.Current
	k.errCov = snap.ErrCov
	return nil
}
