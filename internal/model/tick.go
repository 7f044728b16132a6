package model

import "time"

// DepthLevel is one level of the order book (top-5 bid or ask).
type DepthLevel struct {
	Price  int64 `json:"price"`  // paise
	Qty    int64 `json:"qty"`    // quantity resting at this level
	Orders int64 `json:"orders"` // number of orders at this level
}

// Tick represents a single market data tick from the feed.
// Price is stored as int64 in paise (1 INR = 100 paise) to avoid float drift.
type Tick struct {
	Symbol    string       `json:"symbol"`
	Exchange  string       `json:"exchange"`
	Price     int64        `json:"price"`      // paise (LTP)
	Qty       int64        `json:"qty"`        // last traded quantity
	CumVolume int64        `json:"cum_volume"` // cumulative session volume
	OI        int64        `json:"oi"`         // open interest (0 for non-derivatives)
	Bids      []DepthLevel `json:"bids,omitempty"`
	Asks      []DepthLevel `json:"asks,omitempty"`
	TickTS    time.Time    `json:"tick_ts"` // UTC timestamp, ms precision
}

// Key returns a unique instrument key: "exchange:symbol".
func (t *Tick) Key() string {
	return t.Exchange + ":" + t.Symbol
}

// BidQty sums resting quantity across all bid levels.
func (t *Tick) BidQty() int64 {
	var n int64
	for _, l := range t.Bids {
		n += l.Qty
	}
	return n
}

// AskQty sums resting quantity across all ask levels.
func (t *Tick) AskQty() int64 {
	var n int64
	for _, l := range t.Asks {
		n += l.Qty
	}
	return n
}

// BidOrders sums order counts across all bid levels.
func (t *Tick) BidOrders() int64 {
	var n int64
	for _, l := range t.Bids {
		n += l.Orders
	}
	return n
}

// AskOrders sums order counts across all ask levels.
func (t *Tick) AskOrders() int64 {
	var n int64
	for _, l := range t.Asks {
		n += l.Orders
	}
	return n
}
