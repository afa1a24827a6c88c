package strategy

import (
	"math"

	"trading-signalbot/internal/model"
)

// ATR multipliers for take-profit and stop-loss distances.
const (
	TakeProfitATR = 2.0
	StopLossATR   = 1.5
)

// Targets computes take-profit and stop-loss for status at price. When price
// or atr is unusable both targets equal price.
func Targets(status model.Status, price float64, atr model.Reading) model.PriceTargets {
	flat := model.PriceTargets{TakeProfit: price, StopLoss: price}
	if !usable(price) || !atr.OK || !usable(atr.Value) {
		return flat
	}
	a := atr.Value
	switch status {
	case model.StatusBuy:
		return model.PriceTargets{TakeProfit: price + TakeProfitATR*a, StopLoss: price - StopLossATR*a}
	case model.StatusSell:
		return model.PriceTargets{TakeProfit: price - TakeProfitATR*a, StopLoss: price + StopLossATR*a}
	default:
		return flat
	}
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
