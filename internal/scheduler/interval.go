// Package scheduler decides when each symbol is re-evaluated and drives the
// background evaluation loop.
package scheduler

import "math"

// MinDelaySeconds is the floor for any computed delay.
const MinDelaySeconds = 5

// Volatility bands, checked in order.
const (
	HighVolatility     = 0.03
	ElevatedVolatility = 0.02
	LowVolatility      = 0.01
)

// Factor returns the interval multiplier for a volatility ratio.
func Factor(ratio float64) float64 {
	switch {
	case ratio > HighVolatility:
		return 0.5
	case ratio > ElevatedVolatility:
		return 0.7
	case ratio < LowVolatility:
		return 1.3
	default:
		return 1.0
	}
}

// NextDelay returns the number of seconds to wait before re-checking a
// symbol: base scaled by the volatility factor, rounded, floored at 5.
func NextDelay(baseSeconds int, ratio float64) int {
	d := int(math.Round(float64(baseSeconds) * Factor(ratio)))
	if d < MinDelaySeconds {
		return MinDelaySeconds
	}
	return d
}
