// Package report renders decision bundles as plain-text messages.
package report

import (
	"fmt"
	"strings"

	"trading-signalbot/internal/model"
)

const na = "n/a"

// Format renders every field of b, one group per line. Unavailable readings
// print as "n/a".
func Format(b *model.Bundle) string {
	s := &b.Snapshot
	lines := []string{
		fmt.Sprintf("%s | Profile: %s | Status: %s", b.Symbol, b.Profile, b.Decision.Status),
		fmt.Sprintf("RSI: %s | Risk: %d/100 | ATR%%: %.2f", num(s.RSI, 2), b.Risk, s.VolatilityRatio*100),
		fmt.Sprintf("Votes (buy/sell/neutral): %d / %d / %d",
			b.Decision.Votes.Buy, b.Decision.Votes.Sell, b.Decision.Votes.Neutral),
		fmt.Sprintf("MACD: %s | Signal: %s", num(s.MACDLine, 2), num(s.MACDSignal, 2)),
		fmt.Sprintf("Stoch %%K/%%D: %s/%s", num(s.StochK, 2), num(s.StochD, 2)),
		fmt.Sprintf("Aroon Up/Down: %s/%s", num(s.AroonUp, 2), num(s.AroonDown, 2)),
		fmt.Sprintf("BB L/M/U: %s/%s/%s", num(s.BBLower, 2), num(s.BBMiddle, 2), num(s.BBUpper, 2)),
		fmt.Sprintf("OBV: %s | ATR: %s | Dominance: %s", num(s.OBV, 2), num(s.ATR, 2), pct(s.Dominance)),
		fmt.Sprintf("Vol (bars sum): %.0f", s.Volume),
		fmt.Sprintf("PSAR: %s | TP: %.4f | SL: %.4f", num(s.PSAR, 4), b.Targets.TakeProfit, b.Targets.StopLoss),
		fmt.Sprintf("Next check: ~%ds", b.NextDelay),
	}
	if b.PaperNote != "" {
		lines = append(lines, b.PaperNote)
	}
	return strings.Join(lines, "\n")
}

// WithSignature appends sig after a blank line. An empty signature leaves
// text unchanged.
func WithSignature(text, sig string) string {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return text
	}
	return text + "\n\n" + sig
}

// Title is the one-line headline used for notifications.
func Title(b *model.Bundle) string {
	return fmt.Sprintf("%s %s", b.Symbol, b.Decision.Status)
}

func num(r model.Reading, prec int) string {
	if !r.OK {
		return na
	}
	return fmt.Sprintf("%.*f", prec, r.Value)
}

func pct(r model.Reading) string {
	if !r.OK {
		return na
	}
	return fmt.Sprintf("%.2f%%", r.Value)
}
