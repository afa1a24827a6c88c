package gateway

import "sync"

type replayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes in a fixed ring so a client
// that reconnects can catch up on what it missed.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	next    int
	n       int
}

// NewReplayBuffer creates a buffer holding up to capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = historySize
	}
	return &ReplayBuffer{entries: make([]replayEntry, capacity)}
}

// Push stores a copy of data under seq, evicting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := append([]byte(nil), data...)

	rb.mu.Lock()
	rb.entries[rb.next] = replayEntry{Seq: seq, Data: cp}
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.n < len(rb.entries) {
		rb.n++
	}
	rb.mu.Unlock()
}

// Range returns entries with fromSeq <= seq <= toSeq, oldest first.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []replayEntry
	start := (rb.next - rb.n + len(rb.entries)) % len(rb.entries)
	for i := 0; i < rb.n; i++ {
		e := rb.entries[(start+i)%len(rb.entries)]
		if e.Seq >= fromSeq && e.Seq <= toSeq {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered entries.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}
