// Package server retains a bounded backlog of chat messages so that late
// joiners can catch up on recent conversation.
package server

import "sync"

// historyBuffer is an insertion-ordered FIFO of the most recent chat
// messages. Once capacity is reached the oldest entry is evicted first.
// System and presence events are never retained.
type historyBuffer struct {
	mu       sync.Mutex
	entries  []historyEntry
	capacity int
}

func newHistoryBuffer(capacity int) *historyBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &historyBuffer{
		entries:  make([]historyEntry, 0, capacity),
		capacity: capacity,
	}
}

// append inserts an entry at the tail, evicting the head when the buffer is
// over capacity.
func (b *historyBuffer) append(entry historyEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[1:]
	}
}

// snapshot returns a copy of the current entries, oldest first. The copy is
// independent of any later mutation of the buffer.
func (b *historyBuffer) snapshot() []historyEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]historyEntry(nil), b.entries...)
}

func (b *historyBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}
