package portfolio

import (
	"trading-signalbot/internal/model"
)

// PositionView is an open position marked to the last seen price.
type PositionView struct {
	model.Position
	LastPrice     float64 `json:"last_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// PnLSummary values the whole paper ledger.
type PnLSummary struct {
	StartBalance  float64        `json:"start_balance"`
	Cash          float64        `json:"cash"`
	RealizedPnL   float64        `json:"realized_pnl"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
	TotalPnL      float64        `json:"total_pnl"`
	Equity        float64        `json:"equity"`
	OpenPositions int            `json:"open_positions"`
	Positions     []PositionView `json:"positions"`
}

// Summarize marks every open position in state to prices. A position with no
// known price is valued at its entry price.
func Summarize(state model.LedgerState, prices map[string]float64) PnLSummary {
	sum := PnLSummary{
		StartBalance:  state.StartBalance,
		Cash:          state.Cash,
		RealizedPnL:   state.RealizedPnL,
		OpenPositions: len(state.Positions),
		Positions:     make([]PositionView, 0, len(state.Positions)),
	}

	var marketValue float64
	for _, pos := range state.Positions {
		last, ok := prices[pos.Symbol]
		if !ok || last <= 0 {
			last = pos.EntryPrice
		}
		v := PositionView{
			Position:      pos,
			LastPrice:     last,
			MarketValue:   pos.Quantity * last,
			UnrealizedPnL: (last - pos.EntryPrice) * pos.Quantity,
		}
		sum.UnrealizedPnL += v.UnrealizedPnL
		marketValue += v.MarketValue
		sum.Positions = append(sum.Positions, v)
	}

	sum.TotalPnL = sum.RealizedPnL + sum.UnrealizedPnL
	sum.Equity = sum.Cash + marketValue
	return sum
}
