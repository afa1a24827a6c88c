// Package strategy turns an indicator snapshot into a trade signal.
//
// Five indicator families vote independently (RSI, MACD, Stochastic, Aroon,
// Bollinger). The votes are tallied and the status is derived from the tally
// and the user's vote enablement.
package strategy

import (
	"trading-signalbot/internal/model"
)

// Thresholds for the voting families.
const (
	RSIOversold     = 30.0
	RSIOverbought   = 70.0
	StochOversold   = 20.0
	StochOverbought = 80.0
	AroonStrong     = 70.0
	AroonWeak       = 30.0
)

// Family is one voting indicator family.
type Family struct {
	Name string
	Vote func(snap *model.IndicatorSnapshot) model.Vote
}

// Families is the fixed, ordered set of voters. Every evaluation casts
// exactly one vote per family.
var Families = []Family{
	{Name: "rsi", Vote: func(s *model.IndicatorSnapshot) model.Vote { return VoteRSI(s.RSI) }},
	{Name: "macd", Vote: func(s *model.IndicatorSnapshot) model.Vote { return VoteMACD(s.MACDLine, s.MACDSignal) }},
	{Name: "stoch", Vote: func(s *model.IndicatorSnapshot) model.Vote { return VoteStoch(s.StochK) }},
	{Name: "aroon", Vote: func(s *model.IndicatorSnapshot) model.Vote { return VoteAroon(s.AroonUp, s.AroonDown) }},
	{Name: "bbands", Vote: func(s *model.IndicatorSnapshot) model.Vote {
		return VoteBollinger(model.ReadingOf(s.LastClose), s.BBLower, s.BBUpper)
	}},
}

// VoteRSI votes buy when oversold and sell when overbought.
func VoteRSI(rsi model.Reading) model.Vote {
	switch {
	case !rsi.OK:
		return model.VoteNeutral
	case rsi.Value < RSIOversold:
		return model.VoteBuy
	case rsi.Value > RSIOverbought:
		return model.VoteSell
	default:
		return model.VoteNeutral
	}
}

// VoteMACD votes on the sign of line minus signal.
func VoteMACD(line, signal model.Reading) model.Vote {
	if !line.OK || !signal.OK {
		return model.VoteNeutral
	}
	d := line.Value - signal.Value
	switch {
	case d > 0:
		return model.VoteBuy
	case d < 0:
		return model.VoteSell
	default:
		return model.VoteNeutral
	}
}

// VoteStoch votes on %K only.
func VoteStoch(k model.Reading) model.Vote {
	switch {
	case !k.OK:
		return model.VoteNeutral
	case k.Value < StochOversold:
		return model.VoteBuy
	case k.Value > StochOverbought:
		return model.VoteSell
	default:
		return model.VoteNeutral
	}
}

// VoteAroon requires one side strong and the other weak.
func VoteAroon(up, down model.Reading) model.Vote {
	if !up.OK || !down.OK {
		return model.VoteNeutral
	}
	switch {
	case up.Value > AroonStrong && down.Value < AroonWeak:
		return model.VoteBuy
	case down.Value > AroonStrong && up.Value < AroonWeak:
		return model.VoteSell
	default:
		return model.VoteNeutral
	}
}

// VoteBollinger votes buy below the lower band and sell above the upper band.
func VoteBollinger(price, lower, upper model.Reading) model.Vote {
	if !price.OK || !lower.OK || !upper.OK {
		return model.VoteNeutral
	}
	switch {
	case price.Value < lower.Value:
		return model.VoteBuy
	case price.Value > upper.Value:
		return model.VoteSell
	default:
		return model.VoteNeutral
	}
}

// Tally collects one vote from every family.
func Tally(snap *model.IndicatorSnapshot) model.VoteTally {
	var t model.VoteTally
	for _, f := range Families {
		t.Add(f.Vote(snap))
	}
	return t
}

// Evaluate derives the signal for snap. Buy needs a buy majority and buy
// enabled; Sell needs a sell majority and sell enabled. The gating is not
// symmetric: a disabled buy side never turns a buy majority into Sell.
func Evaluate(snap *model.IndicatorSnapshot, en model.VoteEnablement) model.SignalDecision {
	votes := Tally(snap)
	status := model.StatusNeutral
	switch {
	case votes.Buy > votes.Sell && en.Buy:
		status = model.StatusBuy
	case votes.Sell > votes.Buy && en.Sell:
		status = model.StatusSell
	}
	return model.SignalDecision{Status: status, Votes: votes}
}
