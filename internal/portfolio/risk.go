package portfolio

import (
	"math"

	"trading-signalbot/internal/model"
)

// Risk score parameters.
const (
	RiskBase           = 30.0
	RiskVolatilityCap  = 70.0
	RiskVolatilityGain = 3000.0
	RiskConflictScore  = 10.0
	// Spreads at or below this count as conflicting votes.
	RiskConflictSpread = 1
)

// ScoreRisk maps a volatility ratio and vote tally to a score in [0, 100].
// NaN or negative ratios are treated as zero volatility; +Inf saturates.
func ScoreRisk(volatilityRatio float64, votes model.VoteTally) int {
	ratio := volatilityRatio
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}

	spread := votes.Buy - votes.Sell
	if spread < 0 {
		spread = -spread
	}
	penalty := 0.0
	if spread <= RiskConflictSpread {
		penalty = RiskConflictScore
	}

	vol := math.Min(RiskVolatilityCap, ratio*RiskVolatilityGain)
	raw := RiskBase + vol + penalty
	return int(math.Max(0, math.Min(100, raw)))
}
