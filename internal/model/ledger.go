package model

import "time"

// Position is an open simulated long position.
type Position struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
}

// LedgerState is a point-in-time copy of the paper ledger.
type LedgerState struct {
	StartBalance float64    `json:"start_balance"`
	Cash         float64    `json:"cash"`
	RealizedPnL  float64    `json:"realized_pnl"`
	Positions    []Position `json:"positions"` // sorted by symbol
}

// FillAction is what a simulated fill did to the ledger.
type FillAction string

const (
	FillOpen  FillAction = "OPEN"
	FillClose FillAction = "CLOSE"
)

// Fill records one simulated ledger mutation.
type Fill struct {
	ID        string     `json:"id"`
	Action    FillAction `json:"action"`
	Symbol    string     `json:"symbol"`
	Quantity  float64    `json:"quantity"`
	Price     float64    `json:"price"`
	PnL       float64    `json:"pnl"` // zero on open
	CashAfter float64    `json:"cash_after"`
	Note      string     `json:"note"`
	FilledAt  time.Time  `json:"filled_at"`
}
