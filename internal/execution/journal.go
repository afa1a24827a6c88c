package execution

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-signalbot/internal/model"
)

// Journal appends paper fills to SQLite for later review. It is write-only
// from the simulator's point of view: the ledger is never rebuilt from it.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the journal database at dbPath.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS paper_fills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		fill_id     TEXT NOT NULL UNIQUE,
		action      TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		qty         REAL NOT NULL,
		price       REAL NOT NULL,
		pnl         REAL NOT NULL DEFAULT 0,
		cash_after  REAL NOT NULL,
		note        TEXT,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_paper_fills_symbol ON paper_fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_paper_fills_filled_at ON paper_fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	slog.Info("paper journal opened", "path", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill appends fill.
func (j *Journal) RecordFill(fill model.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO paper_fills (fill_id, action, symbol, qty, price, pnl, cash_after, note, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fill.ID,
		string(fill.Action),
		fill.Symbol,
		fill.Quantity,
		fill.Price,
		fill.PnL,
		fill.CashAfter,
		fill.Note,
		fill.FilledAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record fill %s %s: %w", fill.Action, fill.Symbol, err)
	}
	return nil
}

// TradeRecord is one row of the journal.
type TradeRecord struct {
	ID        int64   `json:"id"`
	FillID    string  `json:"fill_id"`
	Action    string  `json:"action"`
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	PnL       float64 `json:"pnl"`
	CashAfter float64 `json:"cash_after"`
	Note      string  `json:"note"`
	FilledAt  string  `json:"filled_at"`
}

// GetTrades returns the last limit fills, newest first.
func (j *Journal) GetTrades(limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, fill_id, action, symbol, qty, price, pnl, cash_after, COALESCE(note, ''), filled_at
		 FROM paper_fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer rows.Close()

	trades := make([]TradeRecord, 0, limit)
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.FillID, &t.Action, &t.Symbol, &t.Qty, &t.Price,
			&t.PnL, &t.CashAfter, &t.Note, &t.FilledAt); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Ping checks the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
