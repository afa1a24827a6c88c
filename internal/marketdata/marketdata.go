// Package marketdata fetches OHLCV bars and market-dominance figures from
// public REST APIs.
package marketdata

import (
	"context"

	"trading-signalbot/internal/model"
)

// BarSource returns up to limit bars for symbol at timeframe, oldest first.
// Fetch failures wrap model.ErrDataUnavailable.
type BarSource interface {
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error)
}

// DominanceSource returns the market-cap share (percent) of symbol's base
// asset. An unavailable figure is a NoReading, never an error.
type DominanceSource interface {
	Dominance(ctx context.Context, symbol string) model.Reading
}

// NoDominance is a DominanceSource that never has a figure.
type NoDominance struct{}

// Dominance implements DominanceSource.
func (NoDominance) Dominance(context.Context, string) model.Reading { return model.NoReading }
