package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrDataUnavailable marks a symbol whose bars or indicators could not be
// produced on this pass. The symbol is skipped; nothing else is affected.
var ErrDataUnavailable = errors.New("data unavailable")

// Vote is one indicator family's opinion.
type Vote int

const (
	VoteNeutral Vote = iota
	VoteBuy
	VoteSell
)

func (v Vote) String() string {
	switch v {
	case VoteBuy:
		return "buy"
	case VoteSell:
		return "sell"
	default:
		return "neutral"
	}
}

// VoteTally counts votes cast by the indicator families.
type VoteTally struct {
	Buy     int `json:"buy"`
	Sell    int `json:"sell"`
	Neutral int `json:"neutral"`
}

// Add records one vote.
func (t *VoteTally) Add(v Vote) {
	switch v {
	case VoteBuy:
		t.Buy++
	case VoteSell:
		t.Sell++
	default:
		t.Neutral++
	}
}

// Total returns the number of votes cast.
func (t VoteTally) Total() int {
	return t.Buy + t.Sell + t.Neutral
}

// Status is the final decision for a symbol.
type Status string

const (
	StatusBuy     Status = "Buy"
	StatusSell    Status = "Sell"
	StatusNeutral Status = "Neutral"
)

// VoteEnablement holds the user's vote toggles. Only Buy and Sell gate the
// status; the remaining flags are carried for display.
type VoteEnablement struct {
	Buy           bool `json:"buy" yaml:"buy"`
	Sell          bool `json:"sell" yaml:"sell"`
	Neutral       bool `json:"neutral" yaml:"neutral"`
	PotentialBuy  bool `json:"potential_buy" yaml:"potential_buy"`
	PotentialSell bool `json:"potential_sell" yaml:"potential_sell"`
}

// AllVotesEnabled returns enablement with every flag set.
func AllVotesEnabled() VoteEnablement {
	return VoteEnablement{Buy: true, Sell: true, Neutral: true, PotentialBuy: true, PotentialSell: true}
}

// SignalDecision is the signal engine's output.
type SignalDecision struct {
	Status Status    `json:"status"`
	Votes  VoteTally `json:"votes"`
}

// PriceTargets holds take-profit and stop-loss in the price's unit.
type PriceTargets struct {
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
}

// Bundle is everything produced for one symbol on one evaluation.
type Bundle struct {
	Symbol      string            `json:"symbol"`
	Profile     string            `json:"profile"`
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Decision    SignalDecision    `json:"decision"`
	Risk        int               `json:"risk"`
	Targets     PriceTargets      `json:"targets"`
	NextDelay   int               `json:"next_delay_s"`
	PaperNote   string            `json:"paper_note,omitempty"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// JSON returns the JSON-encoded bundle.
func (b *Bundle) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
