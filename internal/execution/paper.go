// Package execution simulates paper trades against an in-memory ledger and
// journals the resulting fills.
//
// No order ever leaves the process. The ledger lives for one session and is
// discarded on exit; the journal is an audit trail and is never replayed.
package execution

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-signalbot/internal/model"
)

// DefaultStartBalance seeds the ledger when no usable balance is configured.
const DefaultStartBalance = 10000.0

// Order asks the simulator to react to one decision. Enabled and RiskPct come
// from the settings snapshot taken for this evaluation.
type Order struct {
	Symbol  string
	Status  model.Status
	Price   float64
	RiskPct float64
	Enabled bool
}

type position struct {
	qty      float64
	entry    float64
	openedAt time.Time
}

// Simulator owns the paper ledger. Apply is the only mutator; calls are
// serialised so each ledger update completes before the next begins.
type Simulator struct {
	mu        sync.Mutex
	start     float64
	cash      float64
	realized  float64
	positions map[string]position
	fills     []model.Fill

	now func() time.Time
}

// NewSimulator creates a ledger holding startBalance in cash and no positions.
func NewSimulator(startBalance float64) *Simulator {
	if !(startBalance > 0) || math.IsInf(startBalance, 0) {
		startBalance = DefaultStartBalance
	}
	return &Simulator{
		start:     startBalance,
		cash:      startBalance,
		positions: make(map[string]position),
		fills:     make([]model.Fill, 0, 64),
		now:       time.Now,
	}
}

// Apply opens a position on Buy when flat and closes it on Sell when open.
// Every other combination, a disabled simulator, or an unusable order leaves
// the ledger untouched and returns ok=false.
func (s *Simulator) Apply(o Order) (model.Fill, bool) {
	if !o.Enabled || o.Status == model.StatusNeutral {
		return model.Fill{}, false
	}
	if o.Symbol == "" || !(o.Price > 0) || math.IsInf(o.Price, 0) {
		return model.Fill{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		fill model.Fill
		ok   bool
	)
	switch o.Status {
	case model.StatusBuy:
		fill, ok = s.open(o)
	case model.StatusSell:
		fill, ok = s.close(o)
	}
	if !ok {
		return model.Fill{}, false
	}

	s.fills = append(s.fills, fill)
	slog.Info("paper fill",
		"action", fill.Action, "symbol", fill.Symbol,
		"qty", fill.Quantity, "price", fill.Price,
		"pnl", fill.PnL, "cash", fill.CashAfter)
	return fill, true
}

// open must be called with s.mu held.
func (s *Simulator) open(o Order) (model.Fill, bool) {
	if _, held := s.positions[o.Symbol]; held {
		return model.Fill{}, false
	}
	pct := ClampRiskPct(o.RiskPct)
	alloc := s.cash * pct / 100
	if !(alloc > 0) {
		return model.Fill{}, false
	}
	if alloc > s.cash {
		alloc = s.cash
	}

	qty := alloc / o.Price
	at := s.now()
	s.cash -= alloc
	s.positions[o.Symbol] = position{qty: qty, entry: o.Price, openedAt: at}

	return model.Fill{
		ID:        uuid.NewString(),
		Action:    model.FillOpen,
		Symbol:    o.Symbol,
		Quantity:  qty,
		Price:     o.Price,
		CashAfter: s.cash,
		Note:      fmt.Sprintf("[paper] opened %s: qty %.6f @ %.4f", o.Symbol, qty, o.Price),
		FilledAt:  at,
	}, true
}

// close must be called with s.mu held.
func (s *Simulator) close(o Order) (model.Fill, bool) {
	pos, held := s.positions[o.Symbol]
	if !held {
		return model.Fill{}, false
	}

	proceeds := pos.qty * o.Price
	pnl := proceeds - pos.qty*pos.entry
	s.cash += proceeds
	s.realized += pnl
	delete(s.positions, o.Symbol)

	return model.Fill{
		ID:        uuid.NewString(),
		Action:    model.FillClose,
		Symbol:    o.Symbol,
		Quantity:  pos.qty,
		Price:     o.Price,
		PnL:       pnl,
		CashAfter: s.cash,
		Note:      fmt.Sprintf("[paper] closed %s: pnl %.2f | cash %.2f", o.Symbol, pnl, s.cash),
		FilledAt:  s.now(),
	}, true
}

// Snapshot returns a copy of the ledger with positions sorted by symbol.
func (s *Simulator) Snapshot() model.LedgerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.LedgerState{
		StartBalance: s.start,
		Cash:         s.cash,
		RealizedPnL:  s.realized,
		Positions:    make([]model.Position, 0, len(s.positions)),
	}
	for sym, p := range s.positions {
		st.Positions = append(st.Positions, model.Position{
			Symbol:     sym,
			Quantity:   p.qty,
			EntryPrice: p.entry,
			OpenedAt:   p.openedAt,
		})
	}
	sort.Slice(st.Positions, func(i, j int) bool { return st.Positions[i].Symbol < st.Positions[j].Symbol })
	return st
}

// GetFills returns the last limit fills, newest first. limit <= 0 returns all.
func (s *Simulator) GetFills(limit int) []model.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.fills)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Fill, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.fills[i])
	}
	return out
}

// Reset discards all positions and fills and starts over with startBalance
// in cash. An unusable balance falls back to DefaultStartBalance.
func (s *Simulator) Reset(startBalance float64) model.LedgerState {
	if !(startBalance > 0) || math.IsInf(startBalance, 0) {
		startBalance = DefaultStartBalance
	}
	s.mu.Lock()
	s.start = startBalance
	s.cash = startBalance
	s.realized = 0
	s.positions = make(map[string]position)
	s.fills = s.fills[:0]
	s.mu.Unlock()

	return s.Snapshot()
}
