package model

import (
	"encoding/json"
	"time"
)

// Candle represents a 1-minute OHLC candle for a single instrument,
// including open-interest movement and the order book aggregate captured
// at seal time. All prices are in paise (int64) to avoid floating-point drift.
type Candle struct {
	Symbol     string    `json:"symbol"`
	Exchange   string    `json:"exchange"`
	TS         time.Time `json:"ts"`          // bucket start time (UTC, minute-aligned)
	Open       int64     `json:"open"`        // paise
	High       int64     `json:"high"`        // paise
	Low        int64     `json:"low"`         // paise
	Close      int64     `json:"close"`       // paise
	Volume     int64     `json:"volume"`      // traded quantity within this minute
	TicksCount int       `json:"ticks_count"` // number of ticks aggregated

	// Open interest: value at the first and last tick of the bucket.
	OIOpen   int64 `json:"oi_open"`
	OIClose  int64 `json:"oi_close"`
	OIChange int64 `json:"oi_change"` // OIClose - OIOpen

	// Order book aggregate from the last tick that carried depth.
	BidQty    int64 `json:"bid_qty"`
	AskQty    int64 `json:"ask_qty"`
	BidOrders int64 `json:"bid_orders"`
	AskOrders int64 `json:"ask_orders"`
}

// Key returns a unique key for this candle's instrument: "exchange:symbol".
func (c *Candle) Key() string {
	return c.Exchange + ":" + c.Symbol
}

// Minute returns the bucket start as Unix seconds (minute-aligned).
func (c *Candle) Minute() int64 {
	return c.TS.Unix()
}

// BidAskRatio returns total bid qty / total ask qty (0 when no asks).
func (c *Candle) BidAskRatio() float64 {
	if c.AskQty == 0 {
		return 0
	}
	return float64(c.BidQty) / float64(c.AskQty)
}

// OrderImbalance returns bid orders minus ask orders.
func (c *Candle) OrderImbalance() int64 {
	return c.BidOrders - c.AskOrders
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
