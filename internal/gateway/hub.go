// Package gateway exposes the bot's decisions and state to front ends: a
// WebSocket stream of decision bundles plus a small REST surface for
// settings, the paper ledger and recent fills.
package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-signalbot/internal/model"
)

// Envelope types pushed to clients.
const (
	TypeDecision = "decision"
	TypeFill     = "fill"
	TypeSettings = "settings_update"
)

// historySize is how many envelopes are kept for reconnect backfill.
const historySize = 500

// Hub manages WebSocket clients and fans decision bundles out to them.
//   - Broadcaster: envelope construction + client-filtered fan-out
//   - ConfigStore: settings reads/writes + change broadcast
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry // by symbol
	seq     int64

	history *ReplayBuffer
	fanout  *LatencyTracker

	// OnClientsChanged, if set, is called with the client count after every
	// connect and disconnect.
	OnClientsChanged func(n int)

	Broadcaster *Broadcaster
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// FanoutLatency summarises how long recent broadcasts took to enqueue.
func (h *Hub) FanoutLatency() LatencySummary { return h.fanout.Summary() }

// NewHub creates an empty hub.
func NewHub() *Hub {
	h := &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
		history: NewReplayBuffer(historySize),
		fanout:  NewLatencyTracker(1024),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// PublishDecision records b as the latest bundle for its symbol and pushes it
// to every subscribed client.
func (h *Hub) PublishDecision(b *model.Bundle) {
	h.Broadcaster.Broadcast(TypeDecision, b.Symbol, b.JSON())
}

// PublishFill pushes a paper fill to every subscribed client.
func (h *Hub) PublishFill(f model.Fill) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("gateway: encode fill", "error", err)
		return
	}
	h.Broadcaster.Broadcast(TypeFill, f.Symbol, data)
}

// HandleWSRequest registers an upgraded connection. Envelopes newer than
// sinceSeq are replayed first; sinceSeq <= 0 sends only the latest decision
// per symbol.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, sinceSeq int64) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	conn.EnableWriteCompression(true)

	count := h.register(client, sinceSeq)
	h.clientsChanged(count)
	slog.Info("ws client connected", "clients", count)

	go client.writePump()
	go client.readPump()
}

// register queues the client's initial state and adds it to the fan-out
// set under one lock, so no live envelope can overtake the backlog.
func (h *Hub) register(c *Client, sinceSeq int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.sendInitialState(sinceSeq)
	h.clients[c] = true
	return len(h.clients)
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()
	h.clientsChanged(count)
}

func (h *Hub) clientsChanged(n int) {
	if h.OnClientsChanged != nil {
		h.OnClientsChanged(n)
	}
}

// GetLatestAll returns the latest decision bundle per symbol.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// History returns buffered envelopes with seq in [fromSeq, toSeq].
func (h *Hub) History(fromSeq, toSeq int64) [][]byte {
	entries := h.history.Range(fromSeq, toSeq)
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Data
	}
	return out
}

// Seq returns the sequence number of the last envelope sent.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
