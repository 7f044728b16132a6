package market

import "alert-systemv1/internal/model"

// DepthThresholds gate the order book bias classification.
type DepthThresholds struct {
	BuyerRatio        float64 // bid/ask qty ratio at or above which buyers dominate
	SellerRatio       float64 // bid/ask qty ratio at or below which sellers dominate
	MinOrderImbalance int64   // |bid orders - ask orders| required to confirm
}

// DefaultDepthThresholds returns the standard 1.5 / 0.67 / 100 gates.
func DefaultDepthThresholds() DepthThresholds {
	return DepthThresholds{BuyerRatio: 1.5, SellerRatio: 0.67, MinOrderImbalance: 100}
}

// DepthBiasOf classifies the order book aggregate of a sealed candle.
// Both the quantity ratio and the order-count imbalance must clear
// their thresholds for a directional call; a candle with no captured
// depth carries a zero ratio and a zero imbalance and stays NEUTRAL.
func DepthBiasOf(c model.Candle, th DepthThresholds) model.DepthBias {
	ratio := c.BidAskRatio()
	imb := c.OrderImbalance()
	switch {
	case ratio >= th.BuyerRatio && imb >= th.MinOrderImbalance:
		return model.DepthBuyerDominant
	case ratio <= th.SellerRatio && imb <= -th.MinOrderImbalance:
		return model.DepthSellerDominant
	default:
		return model.DepthNeutral
	}
}
