package execution

import (
	"math"
	"strconv"
	"strings"
)

// Allocation bounds, as percent of current cash.
const (
	DefaultRiskPct = 5.0
	MinRiskPct     = 0.1
	MaxRiskPct     = 50.0
)

// ClampRiskPct bounds pct to [MinRiskPct, MaxRiskPct]. NaN and infinities
// are malformed and become DefaultRiskPct.
func ClampRiskPct(pct float64) float64 {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return DefaultRiskPct
	}
	return math.Max(MinRiskPct, math.Min(MaxRiskPct, pct))
}

// ParseRiskPct reads a user-entered percentage such as "5", " 2.5 " or "10%".
// Unparseable input yields DefaultRiskPct. The result is clamped.
func ParseRiskPct(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return DefaultRiskPct
	}
	return ClampRiskPct(v)
}
