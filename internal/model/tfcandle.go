package model

import (
	"encoding/json"
	"time"
)

// TFCandle represents a resampled OHLC candle for a wider timeframe,
// built incrementally from finalized 1-minute candles. TF is the
// timeframe duration in seconds (e.g., 300 = 5 minutes).
// All prices are in paise (int64) to avoid floating-point drift.
type TFCandle struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`      // timeframe in seconds
	TS       time.Time `json:"ts"`      // bucket start time (UTC, TF-aligned)
	Open     int64     `json:"open"`    // paise
	High     int64     `json:"high"`    // paise
	Low      int64     `json:"low"`     // paise
	Close    int64     `json:"close"`   // paise
	Volume   int64     `json:"volume"`  // cumulative quantity
	OIClose  int64     `json:"oi_close"`
	OIChange int64     `json:"oi_change"` // summed over merged 1m candles
	Count    int       `json:"count"`     // number of 1m candles merged
	Forming  bool      `json:"forming"`   // true if bucket is still open
}

// Key returns "exchange:symbol".
func (c *TFCandle) Key() string {
	return c.Exchange + ":" + c.Symbol
}

// StreamKey returns the Redis stream key: "candle:{TF}s:{exchange}:{symbol}".
func (c *TFCandle) StreamKey() string {
	return "candle:" + Itoa(c.TF) + "s:" + c.Exchange + ":" + c.Symbol
}

// JSON returns the JSON-encoded TF candle.
func (c *TFCandle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
