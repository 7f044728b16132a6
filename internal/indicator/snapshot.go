package indicator

import "fmt"

// Snapshottable is implemented by every stateful piece of a battery,
// including the detectors that sit outside the Indicator interface.
type Snapshottable interface {
	Snapshot() IndicatorSnapshot
	RestoreFromSnapshot(snap IndicatorSnapshot) error
}

// CandleSnap is a compact OHLCV copy used by window-of-candles state
// (pattern detector).
type CandleSnap struct {
	Open   int64 `json:"o"`
	High   int64 `json:"h"`
	Low    int64 `json:"l"`
	Close  int64 `json:"c"`
	Volume int64 `json:"v"`
}

// IndicatorSnapshot holds the serialized state of a single indicator
// instance. It is a flat union: each indicator type reads and writes
// only the fields it needs, composites nest their parts under Sub.
type IndicatorSnapshot struct {
	Type   string `json:"type"`
	Period int    `json:"period,omitempty"`

	// Rolling-window fields
	Buf     []float64 `json:"buf,omitempty"`
	BufHigh []float64 `json:"buf_high,omitempty"`
	BufLow  []float64 `json:"buf_low,omitempty"`
	Idx     int       `json:"idx,omitempty"`
	Count   int       `json:"count"`
	Sum     float64   `json:"sum,omitempty"`
	SumSq   float64   `json:"sum_sq,omitempty"`
	Current float64   `json:"current"`
	Prev    float64   `json:"prev,omitempty"`

	// Smoothed-series fields
	Multiplier float64 `json:"multiplier,omitempty"`
	PrevClose  float64 `json:"prev_close,omitempty"`
	AvgGain    float64 `json:"avg_gain,omitempty"`
	AvgLoss    float64 `json:"avg_loss,omitempty"`
	Started    bool    `json:"started,omitempty"`

	// Flow accumulators (MFI)
	SumPos float64 `json:"sum_pos,omitempty"`
	SumNeg float64 `json:"sum_neg,omitempty"`

	// Directional-movement fields (ADX)
	PrevHigh  float64 `json:"prev_high,omitempty"`
	PrevLow   float64 `json:"prev_low,omitempty"`
	SmTR      float64 `json:"sm_tr,omitempty"`
	SmPlusDM  float64 `json:"sm_plus_dm,omitempty"`
	SmMinusDM float64 `json:"sm_minus_dm,omitempty"`
	PlusDI    float64 `json:"plus_di,omitempty"`
	MinusDI   float64 `json:"minus_di,omitempty"`
	DXSum     float64 `json:"dx_sum,omitempty"`

	// Session-cumulative fields (VWAP)
	CumPV      float64 `json:"cum_pv,omitempty"`
	CumVol     float64 `json:"cum_vol,omitempty"`
	SessionKey string  `json:"session_key,omitempty"`

	// Kalman filter covariance
	ErrCov float64 `json:"err_cov,omitempty"`

	// Crossover state machine
	PrevSign int `json:"prev_sign,omitempty"`

	// Candle-window state (pattern detector)
	Window []CandleSnap `json:"window,omitempty"`

	// Composite indicators nest their parts here in a fixed order.
	Sub []IndicatorSnapshot `json:"sub,omitempty"`
}

func errBadSnapshot(typ string, subs int) error {
	return fmt.Errorf("%s snapshot: unexpected sub count %d", typ, subs)
}
