package indicator

import "alert-systemv1/internal/model"

// OBV calculates On-Balance Volume: a running volume total signed by
// the close-to-close direction. The previous OBV value is kept so the
// slope can be read off one update.
type OBV struct {
	count     int
	prevClose float64
	current   float64
	prev      float64
}

// NewOBV creates a new OBV indicator.
func NewOBV() *OBV {
	return &OBV{}
}

func (o *OBV) Name() string { return "OBV" }

func (o *OBV) Update(candle model.Candle) {
	price := float64(candle.Close) / 100.0
	o.count++

	if o.count == 1 {
		o.prevClose = price
		return
	}

	o.prev = o.current
	switch {
	case price > o.prevClose:
		o.current += float64(candle.Volume)
	case price < o.prevClose:
		o.current -= float64(candle.Volume)
	}
	o.prevClose = price
}

func (o *OBV) Value() float64 { return o.current }

// Slope returns the last OBV delta: positive when volume is flowing in.
func (o *OBV) Slope() float64 { return o.current - o.prev }

func (o *OBV) Ready() bool { return o.count >= 2 }

// Snapshot serializes the OBV state for checkpoint persistence.
func (o *OBV) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "OBV",
		Count:     o.count,
		PrevClose: o.prevClose,
		Current:   o.current,
		Prev:      o.prev,
	}
}

// RestoreFromSnapshot restores OBV state from a checkpoint.
func (o *OBV) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	o.count = snap.Count
	o.prevClose = snap.PrevClose
	o.current = snap.Current
	o.prev = snap.Prev
	return nil
}
