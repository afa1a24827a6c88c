package portfolio

import (
	"math"
	"testing"
	"time"

	"trading-signalbot/internal/model"
)

func TestScoreRisk(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		votes model.VoteTally
		want  int
	}{
		{"calm, clear majority", 0, model.VoteTally{Buy: 4, Neutral: 1}, 30},
		{"calm, conflicting", 0, model.VoteTally{Buy: 2, Sell: 1, Neutral: 2}, 40},
		{"spread of two is not conflict", 0.01, model.VoteTally{Buy: 3, Sell: 1, Neutral: 1}, 60},
		{"moderate, conflicting", 0.01, model.VoteTally{Neutral: 5}, 70},
		{"volatility capped", 0.5, model.VoteTally{Buy: 5}, 100},
		{"saturates at 100", 10, model.VoteTally{Buy: 1, Sell: 1, Neutral: 3}, 100},
		{"infinite ratio", math.Inf(1), model.VoteTally{Neutral: 5}, 100},
		{"negative ratio", -1, model.VoteTally{Buy: 5}, 30},
		{"nan ratio", math.NaN(), model.VoteTally{Neutral: 5}, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreRisk(tt.ratio, tt.votes); got != tt.want {
				t.Errorf("ScoreRisk(%v, %+v) = %d, want %d", tt.ratio, tt.votes, got, tt.want)
			}
		})
	}
}

func TestScoreRisk_AlwaysInRange(t *testing.T) {
	for _, ratio := range []float64{0, 1e-6, 0.005, 0.02, 0.03, 0.1, 1, 1e9} {
		for buy := 0; buy <= 5; buy++ {
			for sell := 0; buy+sell <= 5; sell++ {
				v := model.VoteTally{Buy: buy, Sell: sell, Neutral: 5 - buy - sell}
				got := ScoreRisk(ratio, v)
				if got < 0 || got > 100 {
					t.Fatalf("ScoreRisk(%v, %+v) = %d out of range", ratio, v, got)
				}
			}
		}
	}
}

func TestPriceBook(t *testing.T) {
	pb := NewPriceBook()
	now := time.Now()
	pb.UpdatePrice("BTC/USDT", 100, now)
	pb.UpdatePrice("BTC/USDT", 0, now) // ignored
	pb.UpdatePrice("ETH/USDT", 10, now)

	if p, ok := pb.Price("BTC/USDT"); !ok || p != 100 {
		t.Errorf("BTC price = %v, %v", p, ok)
	}
	if _, ok := pb.Price("SOL/USDT"); ok {
		t.Error("unknown symbol should not have a price")
	}
	prices := pb.Prices()
	if len(prices) != 2 {
		t.Errorf("expected 2 prices, got %d", len(prices))
	}
	prices["BTC/USDT"] = 1
	if p, _ := pb.Price("BTC/USDT"); p != 100 {
		t.Error("Prices must return a copy")
	}
}

func TestSummarize(t *testing.T) {
	state := model.LedgerState{
		StartBalance: 10000,
		Cash:         9000,
		RealizedPnL:  50,
		Positions: []model.Position{
			{Symbol: "BTC/USDT", Quantity: 10, EntryPrice: 50},
			{Symbol: "ETH/USDT", Quantity: 5, EntryPrice: 100},
		},
	}
	sum := Summarize(state, map[string]float64{"BTC/USDT": 60})

	if sum.OpenPositions != 2 {
		t.Errorf("open positions = %d", sum.OpenPositions)
	}
	// BTC +100, ETH unpriced so flat.
	if sum.UnrealizedPnL != 100 {
		t.Errorf("unrealized = %v, want 100", sum.UnrealizedPnL)
	}
	if sum.TotalPnL != 150 {
		t.Errorf("total = %v, want 150", sum.TotalPnL)
	}
	if sum.Equity != 9000+600+500 {
		t.Errorf("equity = %v, want 10100", sum.Equity)
	}
	if sum.Positions[1].LastPrice != 100 {
		t.Errorf("unpriced position should mark at entry, got %v", sum.Positions[1].LastPrice)
	}
}
