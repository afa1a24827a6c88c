package model

import (
	"encoding/json"
	"math"
	"time"
)

// Reading is a single indicator value that may be unavailable
// (not enough bars, or the computation produced a non-finite number).
type Reading struct {
	Value float64
	OK    bool
}

// NoReading is the unavailable value.
var NoReading = Reading{}

// ReadingOf wraps v, marking non-finite values unavailable.
func ReadingOf(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoReading
	}
	return Reading{Value: v, OK: true}
}

// Or returns the value, or fallback when unavailable.
func (r Reading) Or(fallback float64) float64 {
	if !r.OK {
		return fallback
	}
	return r.Value
}

// MarshalJSON encodes an unavailable reading as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number or null.
func (r *Reading) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = NoReading
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = ReadingOf(v)
	return nil
}

// IndicatorSnapshot is the latest set of indicator values for one symbol at
// one evaluation tick. It is built once and never mutated afterwards.
type IndicatorSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	TS        time.Time `json:"ts"` // open time of the last bar
	LastClose float64   `json:"last_close"`

	RSI        Reading `json:"rsi"`
	MACDLine   Reading `json:"macd_line"`
	MACDSignal Reading `json:"macd_signal"`
	StochK     Reading `json:"stoch_k"`
	StochD     Reading `json:"stoch_d"`
	AroonUp    Reading `json:"aroon_up"`
	AroonDown  Reading `json:"aroon_down"`
	BBLower    Reading `json:"bb_lower"`
	BBMiddle   Reading `json:"bb_middle"`
	BBUpper    Reading `json:"bb_upper"`
	ATR        Reading `json:"atr"`
	OBV        Reading `json:"obv"`
	PSAR       Reading `json:"psar"`

	// VolatilityRatio is ATR / LastClose, 0 when either is missing.
	VolatilityRatio float64 `json:"volatility_ratio"`

	// Dominance is the base asset's share of total market cap in percent.
	// Informational only.
	Dominance Reading `json:"dominance"`

	// Volume is the summed volume over all fetched bars.
	Volume float64 `json:"volume"`
}

// Key returns "symbol@timeframe".
func (s *IndicatorSnapshot) Key() string {
	return s.Symbol + "@" + s.Timeframe
}
