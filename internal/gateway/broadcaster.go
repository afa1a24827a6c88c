package gateway

import (
	"strconv"
	"time"
)

// Broadcaster builds envelopes and sends them to matching clients.
type Broadcaster struct {
	hub *Hub
	now func() time.Time
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, now: time.Now}
}

// Broadcast wraps data (already JSON) in an envelope
//
//	{"type":"decision","symbol":"BTC/USDT","data":{...},"ts":"...","seq":N}
//
// and fans it out to clients subscribed to symbol; an empty symbol reaches
// every client. Decisions also become the symbol's latest entry. Every
// envelope goes into the replay history.
func (b *Broadcaster) Broadcast(typ, symbol string, data []byte) {
	began := time.Now()
	defer func() { b.hub.fanout.Record(time.Since(began)) }()
	now := b.now().UTC()

	// Sequencing, history and fan-out share one critical section so a client
	// registering concurrently sees each envelope either in its backlog or
	// live, never both and never out of order.
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()

	b.hub.seq++
	seq := b.hub.seq
	if typ == TypeDecision {
		b.hub.latest[symbol] = latestEntry{Data: data, TS: now, Seq: seq}
	}
	buf := buildEnvelope(typ, symbol, data, now, seq)
	b.hub.history.Push(seq, buf)

	for client := range b.hub.clients {
		if !client.wants(symbol) {
			continue
		}
		select {
		case client.send <- buf:
		default:
		}
	}
}

func buildEnvelope(typ, symbol string, data []byte, now time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(typ)+len(symbol)+len(data)+96)
	buf = append(buf, `{"type":`...)
	buf = strconv.AppendQuote(buf, typ)
	buf = append(buf, `,"symbol":`...)
	buf = strconv.AppendQuote(buf, symbol)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}
