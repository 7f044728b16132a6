package model

// OICategory classifies the (price delta, open-interest delta) sign pair
// of two consecutive futures candles.
type OICategory string

const (
	OILongBuildup   OICategory = "LONG_BUILDUP"   // price up, OI up
	OIShortBuildup  OICategory = "SHORT_BUILDUP"  // price down, OI up
	OIShortCovering OICategory = "SHORT_COVERING" // price up, OI down
	OILongUnwind    OICategory = "LONG_UNWIND"    // price down, OI down
	OINeutral       OICategory = "NEUTRAL"
)

// Bullish reports whether the category implies upward pressure.
func (c OICategory) Bullish() bool {
	return c == OILongBuildup || c == OIShortCovering
}

// Bearish reports whether the category implies downward pressure.
func (c OICategory) Bearish() bool {
	return c == OIShortBuildup || c == OILongUnwind
}

// DepthBias is the order book pressure read from a sealed candle's
// bid/ask aggregate.
type DepthBias string

const (
	DepthBuyerDominant  DepthBias = "BUYER_DOMINANT"
	DepthSellerDominant DepthBias = "SELLER_DOMINANT"
	DepthNeutral        DepthBias = "NEUTRAL"
)

// Bias is a coarse direction label used for sector and index aggregates.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
	BiasMixed   Bias = "MIXED"
)

// VIXState buckets the India VIX level.
type VIXState string

const (
	VIXLow     VIXState = "LOW"
	VIXNormal  VIXState = "NORMAL"
	VIXHigh    VIXState = "HIGH"
	VIXExtreme VIXState = "EXTREME"
	VIXUnknown VIXState = "UNKNOWN" // no VIX candle seen yet
)

// Regime is the market-phase label produced by the classifier.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeRanging      Regime = "RANGING"
	RegimeHighVol      Regime = "HIGH_VOLATILITY"
	RegimeUnknown      Regime = "UNKNOWN" // classifier inputs not ready
)

// CrossState is the EMA fast/slow crossover state machine output.
// A cross state is emitted only on the candle where sign(fast-slow) flips.
type CrossState string

const (
	NoCross      CrossState = "NO_CROSS"
	BullishCross CrossState = "BULLISH_CROSS"
	BearishCross CrossState = "BEARISH_CROSS"
)

// Grade is the alert quality band derived from confidence.
type Grade string

const (
	GradeAPlus Grade = "A+" // confidence >= 80
	GradeA     Grade = "A"  // 70-79
	GradeB     Grade = "B"  // 60-69, persisted but not dispatched
	GradeSkip  Grade = "SKIP"
)

// Action is the recommended option-side action for an alert.
type Action string

const (
	ActionBuyCE  Action = "BUY_CE"
	ActionBuyPE  Action = "BUY_PE"
	ActionSellCE Action = "SELL_CE"
	ActionSellPE Action = "SELL_PE"
	ActionHold   Action = "HOLD"
)

// Bullish reports whether the action expresses an upward view.
func (a Action) Bullish() bool { return a == ActionBuyCE || a == ActionSellPE }

// Bearish reports whether the action expresses a downward view.
func (a Action) Bearish() bool { return a == ActionBuyPE || a == ActionSellCE }

// DeliveryState is the per-channel outcome of one alert.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "PENDING"
	DeliverySent    DeliveryState = "SENT"
	DeliveryFailed  DeliveryState = "FAILED"
)

// AlertStatus is the alert-level delivery summary. It is the only field
// of a persisted alert that is ever updated in place, and the dispatcher
// is its only writer.
type AlertStatus string

const (
	StatusPending    AlertStatus = "PENDING"
	StatusDelivered  AlertStatus = "DELIVERED" // every enabled channel succeeded
	StatusPartial    AlertStatus = "PARTIAL"   // some channels failed after retries
	StatusFailed     AlertStatus = "FAILED"    // all channels failed
	StatusSuppressed AlertStatus = "SUPPRESSED"
	StatusHeld       AlertStatus = "HELD" // persisted, not eligible for dispatch
)
