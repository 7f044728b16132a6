package model

// Instrument represents a tracked instrument/symbol.
type Instrument struct {
	Symbol         string `json:"symbol"`
	Exchange       string `json:"exchange"`
	Name           string `json:"name"`
	InstrumentType string `json:"instrument_type"` // EQ, FUT, INDEX
	Sector         string `json:"sector"`          // e.g. BANKING, IT ("" if unsectored)
	Underlying     string `json:"underlying"`      // futures only: cash symbol
	TickSize       int64  `json:"tick_size"`       // minimum price movement in paise
}

// Key returns a unique key for this instrument: "exchange:symbol".
func (i *Instrument) Key() string {
	return i.Exchange + ":" + i.Symbol
}

// IsFutures reports whether the instrument carries open interest worth
// categorizing (has a configured underlying).
func (i *Instrument) IsFutures() bool {
	return i.InstrumentType == "FUT" && i.Underlying != ""
}
