package execution

import (
	"math"
	"strings"
	"sync"
	"testing"

	"trading-signalbot/internal/model"
)

func buy(sym string, price float64) Order {
	return Order{Symbol: sym, Status: model.StatusBuy, Price: price, RiskPct: 5, Enabled: true}
}

func sell(sym string, price float64) Order {
	return Order{Symbol: sym, Status: model.StatusSell, Price: price, RiskPct: 5, Enabled: true}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSimulator_RoundTrip(t *testing.T) {
	sim := NewSimulator(10000)

	fill, ok := sim.Apply(buy("BTC/USDT", 50))
	if !ok {
		t.Fatal("expected buy to open a position")
	}
	if fill.Action != model.FillOpen || !approx(fill.Quantity, 10) {
		t.Errorf("open fill = %+v", fill)
	}
	st := sim.Snapshot()
	if !approx(st.Cash, 9500) || len(st.Positions) != 1 {
		t.Fatalf("after open: %+v", st)
	}
	if !strings.Contains(fill.Note, "opened BTC/USDT") || !strings.Contains(fill.Note, "10.000000") {
		t.Errorf("open note = %q", fill.Note)
	}

	fill, ok = sim.Apply(sell("BTC/USDT", 60))
	if !ok {
		t.Fatal("expected sell to close the position")
	}
	if fill.Action != model.FillClose || !approx(fill.PnL, 100) {
		t.Errorf("close fill = %+v", fill)
	}
	if fill.Note != "[paper] closed BTC/USDT: pnl 100.00 | cash 10100.00" {
		t.Errorf("close note = %q", fill.Note)
	}

	st = sim.Snapshot()
	if !approx(st.Cash, 10100) || !approx(st.RealizedPnL, 100) || len(st.Positions) != 0 {
		t.Errorf("after close: %+v", st)
	}
}

func TestSimulator_RepeatedBuyIsNoop(t *testing.T) {
	sim := NewSimulator(10000)
	sim.Apply(buy("ETH/USDT", 100))
	before := sim.Snapshot()

	if _, ok := sim.Apply(buy("ETH/USDT", 90)); ok {
		t.Error("second buy on an open position must be a no-op")
	}
	after := sim.Snapshot()
	if after.Cash != before.Cash || after.Positions[0].Quantity != before.Positions[0].Quantity {
		t.Errorf("ledger changed: before %+v after %+v", before, after)
	}
}

func TestSimulator_SellWhenFlatIsNoop(t *testing.T) {
	sim := NewSimulator(10000)
	if _, ok := sim.Apply(sell("BTC/USDT", 100)); ok {
		t.Error("sell when flat must be a no-op")
	}
	if st := sim.Snapshot(); st.Cash != 10000 || st.RealizedPnL != 0 {
		t.Errorf("ledger changed: %+v", st)
	}
}

func TestSimulator_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		o    Order
	}{
		{"disabled", Order{Symbol: "BTC/USDT", Status: model.StatusBuy, Price: 50, RiskPct: 5}},
		{"neutral", Order{Symbol: "BTC/USDT", Status: model.StatusNeutral, Price: 50, RiskPct: 5, Enabled: true}},
		{"empty symbol", buy("", 50)},
		{"zero price", buy("BTC/USDT", 0)},
		{"negative price", buy("BTC/USDT", -1)},
		{"nan price", buy("BTC/USDT", math.NaN())},
		{"inf price", buy("BTC/USDT", math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(10000)
			fill, ok := sim.Apply(tt.o)
			if ok || fill.Note != "" {
				t.Errorf("expected no-op, got %+v", fill)
			}
			if st := sim.Snapshot(); st.Cash != 10000 || len(st.Positions) != 0 {
				t.Errorf("ledger changed: %+v", st)
			}
		})
	}
}

func TestSimulator_RiskClampOnAllocation(t *testing.T) {
	sim := NewSimulator(10000)
	o := buy("BTC/USDT", 100)
	o.RiskPct = 200
	fill, ok := sim.Apply(o)
	if !ok {
		t.Fatal("expected open")
	}
	// Clamped to 50%: 5000 allocated.
	if !approx(fill.Quantity, 50) || !approx(fill.CashAfter, 5000) {
		t.Errorf("fill = %+v, want qty 50 and cash 5000", fill)
	}
}

func TestSimulator_AllocationNeverExceedsCash(t *testing.T) {
	sim := NewSimulator(1000)
	for i, sym := range []string{"A", "B", "C", "D", "E", "F"} {
		o := buy(sym, float64(10+i))
		o.RiskPct = 50
		sim.Apply(o)
		if st := sim.Snapshot(); st.Cash < 0 {
			t.Fatalf("cash went negative after %s: %v", sym, st.Cash)
		}
	}
	if st := sim.Snapshot(); !approx(st.Cash, 1000/64.0) {
		t.Errorf("cash = %v, want %v after six half-allocations", st.Cash, 1000/64.0)
	}
}

func TestSimulator_DefaultStartBalance(t *testing.T) {
	for _, bal := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if st := NewSimulator(bal).Snapshot(); st.Cash != DefaultStartBalance {
			t.Errorf("NewSimulator(%v) cash = %v", bal, st.Cash)
		}
	}
}

func TestSimulator_ConcurrentApply(t *testing.T) {
	sim := NewSimulator(10000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Apply(buy("BTC/USDT", 100))
		}()
	}
	wg.Wait()

	st := sim.Snapshot()
	if len(st.Positions) != 1 || !approx(st.Cash, 9500) {
		t.Errorf("exactly one open expected, got %+v", st)
	}
	if n := len(sim.GetFills(0)); n != 1 {
		t.Errorf("fills = %d, want 1", n)
	}
}

func TestSimulator_GetFillsNewestFirst(t *testing.T) {
	sim := NewSimulator(10000)
	sim.Apply(buy("BTC/USDT", 50))
	sim.Apply(sell("BTC/USDT", 55))
	sim.Apply(buy("ETH/USDT", 20))

	fills := sim.GetFills(2)
	if len(fills) != 2 {
		t.Fatalf("got %d fills", len(fills))
	}
	if fills[0].Symbol != "ETH/USDT" || fills[1].Action != model.FillClose {
		t.Errorf("order = %+v", fills)
	}
}

func TestClampRiskPct(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{5, 5},
		{200, 50},
		{50, 50},
		{0, 0.1},
		{-3, 0.1},
		{math.NaN(), 5},
		{math.Inf(1), 5},
	}
	for _, c := range cases {
		if got := ClampRiskPct(c.in); got != c.want {
			t.Errorf("ClampRiskPct(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseRiskPct(t *testing.T) {
	cases := map[string]float64{
		"5":     5,
		" 2.5 ": 2.5,
		"10%":   10,
		"200":   50,
		"abc":   5,
		"":      5,
		"0.01":  0.1,
	}
	for in, want := range cases {
		if got := ParseRiskPct(in); got != want {
			t.Errorf("ParseRiskPct(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSimulator_Reset(t *testing.T) {
	sim := NewSimulator(10000)
	sim.Apply(buy("BTC/USDT", 50))
	sim.Apply(sell("BTC/USDT", 60))
	sim.Apply(buy("ETH/USDT", 10))

	st := sim.Reset(2500)
	if st.StartBalance != 2500 || st.Cash != 2500 || st.RealizedPnL != 0 || len(st.Positions) != 0 {
		t.Errorf("after reset: %+v", st)
	}
	if n := len(sim.GetFills(0)); n != 0 {
		t.Errorf("fills after reset = %d", n)
	}
	if st := sim.Reset(-1); st.Cash != DefaultStartBalance {
		t.Errorf("invalid reset balance: cash = %v", st.Cash)
	}
}

func TestSimulator_FillIDsUnique(t *testing.T) {
	sim := NewSimulator(10000)
	open, _ := sim.Apply(buy("BTC/USDT", 50))
	closed, _ := sim.Apply(sell("BTC/USDT", 55))
	if open.ID == "" || closed.ID == "" || open.ID == closed.ID {
		t.Errorf("ids = %q, %q", open.ID, closed.ID)
	}
}
