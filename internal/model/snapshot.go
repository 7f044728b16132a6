package model

import (
	"encoding/json"
	"time"
)

// Val is a single indicator output with a readiness flag. An indicator
// whose window is not yet full reports Ready=false; such values marshal
// as JSON null and persist as SQL NULL instead of a partial estimate.
type Val struct {
	F     float64
	Ready bool
}

// V constructs a ready value.
func V(f float64) Val { return Val{F: f, Ready: true} }

// MarshalJSON renders unready values as null.
func (v Val) MarshalJSON() ([]byte, error) {
	if !v.Ready {
		return []byte("null"), nil
	}
	return json.Marshal(v.F)
}

// UnmarshalJSON accepts null for unready values.
func (v *Val) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Val{}
		return nil
	}
	v.Ready = true
	return json.Unmarshal(b, &v.F)
}

// Snapshot is the immutable result of one indicator pass for one
// (symbol, minute): the full indicator vector, the per-indicator votes,
// and the regime label attached after classification. Append-only.
type Snapshot struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	TS       time.Time `json:"ts"`    // candle minute that produced this pass
	Close    int64     `json:"close"` // paise

	// Trend
	EMA9   Val `json:"ema9"`
	EMA21  Val `json:"ema21"`
	EMA50  Val `json:"ema50"`
	EMA200 Val `json:"ema200"`
	SMMA7  Val `json:"smma7"`
	LSMA25 Val `json:"lsma25"`

	// Crossover pair (configurable periods, default 9/21)
	XFast Val `json:"xfast"`
	XSlow Val `json:"xslow"`

	// Momentum
	MACD       Val `json:"macd"`
	MACDSignal Val `json:"macd_signal"`
	MACDHist   Val `json:"macd_hist"`
	RSI14      Val `json:"rsi14"`
	StochK     Val `json:"stoch_k"`
	StochD     Val `json:"stoch_d"`
	CCI20      Val `json:"cci20"`
	MFI14      Val `json:"mfi14"`
	ROC12      Val `json:"roc12"`

	// Volatility
	BBUpper Val `json:"bb_upper"`
	BBMid   Val `json:"bb_mid"`
	BBLower Val `json:"bb_lower"`
	ATR14   Val `json:"atr14"`
	ADX14   Val `json:"adx14"`
	DIPlus  Val `json:"di_plus"`
	DIMinus Val `json:"di_minus"`

	// Volume
	VWAP     Val `json:"vwap"`
	OBV      Val `json:"obv"`
	VolRatio Val `json:"vol_ratio"` // mean(last 5) / mean(last 20)

	// Adaptive
	Kalman Val `json:"kalman"`

	// Discrete outputs
	Cross   CrossState `json:"cross"`
	Pattern string     `json:"pattern,omitempty"` // e.g. "BULLISH_ENGULFING"

	// Votes: per-indicator signed signal in {-1, 0, +1}, keyed by
	// indicator name, plus the tallies used by the scorer.
	Votes      map[string]int `json:"votes"`
	BullVotes  int            `json:"bull_votes"`
	BearVotes  int            `json:"bear_votes"`
	ReadyVotes int            `json:"ready_votes"` // indicators that were ready to vote

	// Attached by the regime classifier after the indicator pass.
	Regime     Regime  `json:"regime"`
	RegimeConf float64 `json:"regime_conf"`
}

// Key returns "exchange:symbol".
func (s *Snapshot) Key() string {
	return s.Exchange + ":" + s.Symbol
}

// Minute returns the snapshot minute as Unix seconds.
func (s *Snapshot) Minute() int64 {
	return s.TS.Unix()
}

// NetVote returns bull votes minus bear votes.
func (s *Snapshot) NetVote() int {
	return s.BullVotes - s.BearVotes
}

// JSON returns the JSON-encoded snapshot.
func (s *Snapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
