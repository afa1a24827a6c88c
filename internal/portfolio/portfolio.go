// Package portfolio scores decision risk and values the paper ledger.
//
// It keeps the last seen close per symbol so open simulated positions can be
// marked to market, and summarises realized and unrealized P&L.
package portfolio

import (
	"sync"
	"time"
)

// Mark is the last seen price for a symbol.
type Mark struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

// PriceBook tracks the last close per symbol.
type PriceBook struct {
	mu    sync.RWMutex
	marks map[string]Mark
}

// NewPriceBook creates an empty PriceBook.
func NewPriceBook() *PriceBook {
	return &PriceBook{marks: make(map[string]Mark)}
}

// UpdatePrice records price for symbol. Non-positive prices are ignored.
func (pb *PriceBook) UpdatePrice(symbol string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.marks[symbol] = Mark{Price: price, At: at}
}

// Price returns the last price for symbol.
func (pb *PriceBook) Price(symbol string) (float64, bool) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	m, ok := pb.marks[symbol]
	return m.Price, ok
}

// Prices returns a copy of all last prices.
func (pb *PriceBook) Prices() map[string]float64 {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	out := make(map[string]float64, len(pb.marks))
	for sym, m := range pb.marks {
		out[sym] = m.Price
	}
	return out
}
