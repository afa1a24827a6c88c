package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"trading-signalbot/internal/model"
)

// DefaultExchangeURL is Binance's public spot REST API.
const DefaultExchangeURL = "https://api.binance.com"

// BinanceClient fetches klines from the Binance spot API. No key is needed.
type BinanceClient struct {
	client *resty.Client
}

// NewBinanceClient creates a client against baseURL (DefaultExchangeURL if empty).
func NewBinanceClient(baseURL string) *BinanceClient {
	if baseURL == "" {
		baseURL = DefaultExchangeURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(15 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("Accept", "application/json")
	return &BinanceClient{client: client}
}

// FetchBars implements BarSource using GET /api/v3/klines.
func (b *BinanceClient) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   model.ExchangeSymbol(symbol),
			"interval": timeframe,
			"limit":    strconv.Itoa(limit),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("klines %s: %v: %w", symbol, err, model.ErrDataUnavailable)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("klines %s: status %d: %s: %w",
			symbol, resp.StatusCode(), truncate(resp.String(), 200), model.ErrDataUnavailable)
	}

	bars, err := parseKlines(resp.Body(), symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %v: %w", symbol, err, model.ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("klines %s: no bars: %w", symbol, model.ErrDataUnavailable)
	}
	return bars, nil
}

// parseKlines decodes Binance's array-of-arrays kline payload:
// [openTimeMs, "open", "high", "low", "close", "volume", closeTimeMs, ...].
func parseKlines(body []byte, symbol, timeframe string) ([]model.Bar, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: %d fields", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("row %d open time: %w", i, err)
		}
		var vals [5]float64
		for k := 0; k < 5; k++ {
			v, err := decimalField(row[k+1])
			if err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, k+1, err)
			}
			vals[k] = v
		}
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  time.UnixMilli(openMs).UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return bars, nil
}

// decimalField accepts a quoted decimal string or a bare number.
func decimalField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(raw, &f)
	return f, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
