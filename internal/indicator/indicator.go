// Package indicator builds an IndicatorSnapshot from a window of OHLCV bars.
//
// Every series is computed with go-talib over the full window and only the
// last value is kept. A series whose lookback is not covered by the window
// is reported as unavailable instead of being computed, since talib either
// panics or emits zero padding for short inputs.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"trading-signalbot/internal/model"
)

// Periods used by the snapshot builder.
const (
	RSIPeriod   = 14
	MACDFast    = 12
	MACDSlow    = 26
	MACDSignal  = 9
	StochFastK  = 14
	StochSlowK  = 3
	StochSlowD  = 3
	AroonPeriod = 14
	BBPeriod    = 20
	BBDeviation = 2.0
	ATRPeriod   = 14
	SARAccel    = 0.02
	SARMaxAccel = 0.2
)

// Minimum number of bars required for each family to produce a value.
const (
	minRSI   = RSIPeriod + 1
	minMACD  = MACDSlow + MACDSignal - 1
	minStoch = StochFastK + StochSlowK + StochSlowD - 2
	minAroon = AroonPeriod + 1
	minBB    = BBPeriod
	minATR   = ATRPeriod + 1
	minSAR   = 2
)

// series holds the bar columns talib consumes.
type series struct {
	open, high, low, close, volume []float64
}

func columns(bars []model.Bar) series {
	s := series{
		open:   make([]float64, len(bars)),
		high:   make([]float64, len(bars)),
		low:    make([]float64, len(bars)),
		close:  make([]float64, len(bars)),
		volume: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.open[i] = b.Open
		s.high[i] = b.High
		s.low[i] = b.Low
		s.close[i] = b.Close
		s.volume[i] = b.Volume
	}
	return s
}

// last returns the final element of out as a Reading.
func last(out []float64) model.Reading {
	if len(out) == 0 {
		return model.NoReading
	}
	return model.ReadingOf(out[len(out)-1])
}

// Compute builds the snapshot for symbol/timeframe from bars ordered oldest
// first. It returns model.ErrDataUnavailable when bars is empty or RSI cannot
// be computed; every other family degrades to an unavailable reading.
func Compute(symbol, timeframe string, bars []model.Bar) (model.IndicatorSnapshot, error) {
	if len(bars) == 0 {
		return model.IndicatorSnapshot{}, fmt.Errorf("indicator %s: no bars: %w", symbol, model.ErrDataUnavailable)
	}

	s := columns(bars)
	n := len(bars)
	tail := bars[n-1]

	snap := model.IndicatorSnapshot{
		Symbol:    symbol,
		Timeframe: timeframe,
		TS:        tail.OpenTime,
		LastClose: tail.Close,
	}

	if n >= minRSI {
		snap.RSI = last(talib.Rsi(s.close, RSIPeriod))
	}
	if !snap.RSI.OK {
		return model.IndicatorSnapshot{}, fmt.Errorf("indicator %s: rsi needs %d bars, have %d: %w",
			symbol, minRSI, n, model.ErrDataUnavailable)
	}

	if n >= minMACD {
		line, signal, _ := talib.Macd(s.close, MACDFast, MACDSlow, MACDSignal)
		snap.MACDLine = last(line)
		snap.MACDSignal = last(signal)
	}
	if n >= minStoch {
		k, d := talib.Stoch(s.high, s.low, s.close, StochFastK, StochSlowK, talib.SMA, StochSlowD, talib.SMA)
		snap.StochK = last(k)
		snap.StochD = last(d)
	}
	if n >= minAroon {
		down, up := talib.Aroon(s.high, s.low, AroonPeriod)
		snap.AroonDown = last(down)
		snap.AroonUp = last(up)
	}
	if n >= minBB {
		upper, middle, lower := talib.BBands(s.close, BBPeriod, BBDeviation, BBDeviation, talib.SMA)
		snap.BBUpper = last(upper)
		snap.BBMiddle = last(middle)
		snap.BBLower = last(lower)
	}
	if n >= minATR {
		snap.ATR = last(talib.Atr(s.high, s.low, s.close, ATRPeriod))
	}
	snap.OBV = last(talib.Obv(s.close, s.volume))
	if n >= minSAR {
		snap.PSAR = last(talib.Sar(s.high, s.low, SARAccel, SARMaxAccel))
	}

	snap.VolatilityRatio = VolatilityRatio(snap.ATR, snap.LastClose)
	for _, v := range s.volume {
		snap.Volume += v
	}
	return snap, nil
}

// VolatilityRatio is ATR relative to price. It is 0 when ATR is unavailable
// or price is not positive.
func VolatilityRatio(atr model.Reading, price float64) float64 {
	if !atr.OK || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	r := atr.Value / price
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0
	}
	return r
}
