package model

import (
	"encoding/json"
	"time"
)

// AlertContext is the assembled decision input for one alert evaluation.
// Cross-symbol inputs (sector, index, VIX) may be absent; the scorer
// degrades their evidence to zero rather than failing.
type AlertContext struct {
	Symbol   string
	Exchange string
	TS       time.Time // candle minute
	Close    int64     // paise

	OICategory OICategory
	DepthBias  DepthBias
	Sector     string // symbol's configured sector ("" if none)
	SectorBias Bias
	IndexBias  Bias
	VIX        VIXState
	Regime     Regime

	Snapshot *Snapshot
}

// RationaleEntry records one evidence group's contribution to an alert.
type RationaleEntry struct {
	Group  string  `json:"group"`  // e.g. "oi_depth", "indicators"
	Points float64 `json:"points"` // contribution after alignment
	Side   int     `json:"side"`   // +1 bullish, -1 bearish, 0 neutral
	Detail string  `json:"detail"` // human-readable note
}

// Alert is one graded trade alert. Immutable after creation except for
// the delivery fields, which only the dispatcher writes.
type Alert struct {
	Symbol     string           `json:"symbol"`
	Exchange   string           `json:"exchange"`
	TS         time.Time        `json:"ts"` // candle minute the alert evaluates
	Confidence float64          `json:"confidence"`
	Grade      Grade            `json:"grade"`
	Action     Action           `json:"action"`
	Rationale  []RationaleEntry `json:"rationale"` // ordered by |points| descending
	OICategory OICategory       `json:"oi_category"`
	Regime     Regime           `json:"regime"`
	Close      int64            `json:"close"` // paise at evaluation

	Channels  map[string]DeliveryState `json:"channels,omitempty"`
	Status    AlertStatus              `json:"status"`
	CreatedAt time.Time                `json:"created_at"`
}

// DedupKey returns the dedup identity "symbol:minute:grade". A second
// alert with the same key within one process lifetime is suppressed.
func (a *Alert) DedupKey() string {
	return a.Symbol + ":" + Itoa64(a.TS.Unix()) + ":" + string(a.Grade)
}

// Key returns "exchange:symbol".
func (a *Alert) Key() string {
	return a.Exchange + ":" + a.Symbol
}

// Dispatchable reports whether the alert is eligible for external
// dispatch: grade A or A+, and an actionable (non-HOLD) direction.
func (a *Alert) Dispatchable() bool {
	if a.Action == ActionHold {
		return false
	}
	return a.Grade == GradeAPlus || a.Grade == GradeA
}

// JSON returns the JSON-encoded alert.
func (a *Alert) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
