package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"trading-signalbot/internal/execution"
	"trading-signalbot/internal/model"
	"trading-signalbot/internal/portfolio"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Ledger is the paper simulator as seen by the REST surface.
type Ledger interface {
	Snapshot() model.LedgerState
	GetFills(limit int) []model.Fill
	Reset(startBalance float64) model.LedgerState
}

// Prices supplies the last seen price per symbol.
type Prices interface {
	Prices() map[string]float64
}

// TradeLog is the persistent fill journal.
type TradeLog interface {
	GetTrades(limit int) ([]execution.TradeRecord, error)
}

// Deps are the collaborators the routes read from. Trades may be nil, in
// which case /api/trades serves the in-memory fills.
type Deps struct {
	Hub    *Hub
	Config *ConfigStore
	Ledger Ledger
	Prices Prices
	Trades TradeLog
	Start  time.Time
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def int64) int64 {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	return def
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	// WebSocket endpoint. ?since=N replays envelopes after seq N.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade error", "error", err)
			return
		}
		d.Hub.HandleWSRequest(conn, queryInt(r, "since", 0))
	})

	mux.HandleFunc("/api/decisions/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, d.Hub.GetLatestAll())
	})

	// Envelopes in [from, to] still held in the replay history.
	mux.HandleFunc("/api/decisions/history", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		from := queryInt(r, "from", 1)
		to := queryInt(r, "to", d.Hub.Seq())
		raw := d.Hub.History(from, to)
		out := make([]json.RawMessage, len(raw))
		for i, b := range raw {
			out[i] = b
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			writeJSON(w, http.StatusOK, d.Config.Get())
		case http.MethodPut, http.MethodPost:
			// Decode over the current settings so omitted fields keep their values.
			next := d.Config.Get()
			if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
				return
			}
			writeJSON(w, http.StatusOK, d.Config.Set(r.Context(), next))
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/ledger", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, portfolio.Summarize(d.Ledger.Snapshot(), d.Prices.Prices()))
	})

	// Wipes the paper ledger back to the configured start balance.
	mux.HandleFunc("/api/ledger/reset", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		st := d.Ledger.Reset(d.Config.Get().Paper.StartBalance)
		slog.Info("paper ledger reset", "start_balance", st.StartBalance)
		writeJSON(w, http.StatusOK, portfolio.Summarize(st, d.Prices.Prices()))
	})

	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		limit := int(queryInt(r, "limit", 100))
		if d.Trades == nil {
			writeJSON(w, http.StatusOK, d.Ledger.GetFills(limit))
			return
		}
		trades, err := d.Trades.GetTrades(limit)
		if err != nil {
			slog.Error("trades query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "trades unavailable")
			return
		}
		writeJSON(w, http.StatusOK, trades)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"ws_clients": d.Hub.ClientCount(),
			"seq":        d.Hub.Seq(),
			"uptime_sec": int64(time.Since(d.Start).Seconds()),
			"fanout":     d.Hub.FanoutLatency(),
			"system":     ReadSystemStats(d.Start),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
