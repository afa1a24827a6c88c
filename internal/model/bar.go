package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Bar is one OHLCV candle as returned by the exchange.
// Prices are quote-currency floats (e.g. USDT), unlike integer paise feeds.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // "1m", "5m", "1h"
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// BaseAsset returns the left side of a "BASE/QUOTE" pair, e.g. "BTC" for "BTC/USDT".
func BaseAsset(symbol string) string {
	base, _, _ := strings.Cut(symbol, "/")
	return strings.ToUpper(strings.TrimSpace(base))
}

// ExchangeSymbol strips the separator: "BTC/USDT" -> "BTCUSDT".
func ExchangeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}
