package strategy

import (
	"math"
	"testing"

	"trading-signalbot/internal/model"
)

func r(v float64) model.Reading { return model.ReadingOf(v) }

// buySnapshot has every family voting buy.
func buySnapshot() model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:     "BTC/USDT",
		LastClose:  90,
		RSI:        r(25),
		MACDLine:   r(1.5),
		MACDSignal: r(1.0),
		StochK:     r(10),
		StochD:     r(12),
		AroonUp:    r(85),
		AroonDown:  r(10),
		BBLower:    r(95),
		BBMiddle:   r(100),
		BBUpper:    r(105),
	}
}

func TestVoteRSI(t *testing.T) {
	tests := []struct {
		in   model.Reading
		want model.Vote
	}{
		{r(29.9), model.VoteBuy},
		{r(30), model.VoteNeutral},
		{r(70), model.VoteNeutral},
		{r(70.1), model.VoteSell},
		{model.NoReading, model.VoteNeutral},
	}
	for _, tt := range tests {
		if got := VoteRSI(tt.in); got != tt.want {
			t.Errorf("VoteRSI(%+v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestVoteMACD(t *testing.T) {
	if got := VoteMACD(r(1), r(0.5)); got != model.VoteBuy {
		t.Errorf("positive histogram: got %s", got)
	}
	if got := VoteMACD(r(0.5), r(1)); got != model.VoteSell {
		t.Errorf("negative histogram: got %s", got)
	}
	if got := VoteMACD(r(1), r(1)); got != model.VoteNeutral {
		t.Errorf("zero histogram: got %s", got)
	}
	if got := VoteMACD(r(1), model.NoReading); got != model.VoteNeutral {
		t.Errorf("missing signal: got %s", got)
	}
}

func TestVoteStoch(t *testing.T) {
	for in, want := range map[float64]model.Vote{19: model.VoteBuy, 20: model.VoteNeutral, 80: model.VoteNeutral, 81: model.VoteSell} {
		if got := VoteStoch(r(in)); got != want {
			t.Errorf("VoteStoch(%v) = %s, want %s", in, got, want)
		}
	}
	if got := VoteStoch(model.NoReading); got != model.VoteNeutral {
		t.Errorf("missing %%K: got %s", got)
	}
}

func TestVoteAroon(t *testing.T) {
	tests := []struct {
		up, down model.Reading
		want     model.Vote
	}{
		{r(71), r(29), model.VoteBuy},
		{r(29), r(71), model.VoteSell},
		{r(70), r(29), model.VoteNeutral},
		{r(80), r(40), model.VoteNeutral},
		{r(80), model.NoReading, model.VoteNeutral},
	}
	for _, tt := range tests {
		if got := VoteAroon(tt.up, tt.down); got != tt.want {
			t.Errorf("VoteAroon(%+v, %+v) = %s, want %s", tt.up, tt.down, got, tt.want)
		}
	}
}

func TestVoteBollinger(t *testing.T) {
	if got := VoteBollinger(r(94), r(95), r(105)); got != model.VoteBuy {
		t.Errorf("below lower: got %s", got)
	}
	if got := VoteBollinger(r(106), r(95), r(105)); got != model.VoteSell {
		t.Errorf("above upper: got %s", got)
	}
	if got := VoteBollinger(r(95), r(95), r(105)); got != model.VoteNeutral {
		t.Errorf("on lower band: got %s", got)
	}
	if got := VoteBollinger(r(90), model.NoReading, r(105)); got != model.VoteNeutral {
		t.Errorf("missing band: got %s", got)
	}
}

func TestTally_AlwaysFiveVotes(t *testing.T) {
	snaps := []model.IndicatorSnapshot{
		{},
		buySnapshot(),
		{LastClose: 100, RSI: r(50)},
		{LastClose: math.NaN(), RSI: r(math.Inf(1)), MACDLine: r(1)},
	}
	for i := range snaps {
		votes := Tally(&snaps[i])
		if votes.Total() != 5 {
			t.Errorf("snapshot %d: %+v sums to %d, want 5", i, votes, votes.Total())
		}
	}
}

func TestEvaluate_AllBuy(t *testing.T) {
	snap := buySnapshot()
	d := Evaluate(&snap, model.AllVotesEnabled())
	if d.Status != model.StatusBuy {
		t.Errorf("status = %s, want Buy", d.Status)
	}
	if d.Votes != (model.VoteTally{Buy: 5}) {
		t.Errorf("votes = %+v", d.Votes)
	}
}

func TestEvaluate_BuyDisabledYieldsNeutral(t *testing.T) {
	// 4 buy, 1 sell: RSI flips to sell.
	snap := buySnapshot()
	snap.RSI = r(80)
	en := model.AllVotesEnabled()
	en.Buy = false

	d := Evaluate(&snap, en)
	if d.Votes.Buy != 4 || d.Votes.Sell != 1 {
		t.Fatalf("votes = %+v, want 4 buy / 1 sell", d.Votes)
	}
	if d.Status != model.StatusNeutral {
		t.Errorf("status = %s, want Neutral", d.Status)
	}
}

func TestEvaluate_SellGating(t *testing.T) {
	snap := model.IndicatorSnapshot{
		LastClose:  110,
		RSI:        r(75),
		MACDLine:   r(-1),
		MACDSignal: r(0),
		StochK:     r(90),
		AroonUp:    r(50),
		AroonDown:  r(50),
		BBLower:    r(95),
		BBUpper:    r(105),
	}
	en := model.AllVotesEnabled()
	if d := Evaluate(&snap, en); d.Status != model.StatusSell {
		t.Errorf("status = %s, want Sell (votes %+v)", d.Status, d.Votes)
	}
	en.Sell = false
	if d := Evaluate(&snap, en); d.Status != model.StatusNeutral {
		t.Errorf("sell disabled: status = %s, want Neutral", d.Status)
	}
}

func TestEvaluate_CosmeticFlagsIgnored(t *testing.T) {
	snap := buySnapshot()
	en := model.VoteEnablement{Buy: true}
	if d := Evaluate(&snap, en); d.Status != model.StatusBuy {
		t.Errorf("status = %s, want Buy with only buy enabled", d.Status)
	}
}

func TestEvaluate_TieIsNeutral(t *testing.T) {
	// RSI buys, MACD sells, the rest are neutral.
	snap := model.IndicatorSnapshot{
		LastClose:  100,
		RSI:        r(20),
		MACDLine:   r(0),
		MACDSignal: r(1),
		BBLower:    r(90),
		BBUpper:    r(110),
	}
	d := Evaluate(&snap, model.AllVotesEnabled())
	if d.Status != model.StatusNeutral {
		t.Errorf("status = %s, want Neutral on tie", d.Status)
	}
}
