package indicator

import (
	"alert-systemv1/internal/markethours"
	"alert-systemv1/internal/model"
)

// VWAP calculates the session-anchored Volume Weighted Average Price
// over typical prices. State resets when the candle's trading session
// changes; it is the only indicator in the battery that does.
type VWAP struct {
	cumPV      float64
	cumVol     float64
	sessionKey string
	current    float64
}

// NewVWAP creates a new session VWAP indicator.
func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Name() string { return "VWAP" }

func (v *VWAP) Update(candle model.Candle) {
	session := markethours.SessionKey(candle.TS)
	if session != v.sessionKey {
		v.sessionKey = session
		v.cumPV = 0
		v.cumVol = 0
		v.current = 0
	}

	tp := float64(candle.High+candle.Low+candle.Close) / 3.0 / 100.0
	v.cumPV += tp * float64(candle.Volume)
	v.cumVol += float64(candle.Volume)

	if v.cumVol > 0 {
		v.current = v.cumPV / v.cumVol
	}
}

func (v *VWAP) Value() float64 { return v.current }
func (v *VWAP) Ready() bool    { return v.cumVol > 0 }

// Snapshot serializes the VWAP state for checkpoint persistence.
func (v *VWAP) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:       "VWAP",
		CumPV:      v.cumPV,
		CumVol:     v.cumVol,
		SessionKey: v.sessionKey,
		Current:    v.current,
	}
}

// RestoreFromSnapshot restores VWAP state from a checkpoint.
func (v *VWAP) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	v.cumPV = snap.CumPV
	v.cumVol = snap.CumVol
	v.sessionKey = snap.SessionKey
	v.current = snap.Current
	return nil
}
