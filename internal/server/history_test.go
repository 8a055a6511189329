package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(n int) historyEntry {
	return historyEntry{
		Type:      eventTypeMessage,
		Txt:       fmt.Sprintf("message %d", n),
		Pseudo:    "Alice",
		Timestamp: fmt.Sprintf("2026-09-01T10:00:%02dZ", n),
	}
}

func TestHistoryBufferKeepsInsertionOrder(t *testing.T) {
	buf := newHistoryBuffer(10)

	for i := 0; i < 4; i++ {
		buf.append(entry(i))
	}

	snap := buf.snapshot()
	require.Len(t, snap, 4)
	for i, e := range snap {
		assert.Equal(t, fmt.Sprintf("message %d", i), e.Txt)
	}
}

func TestHistoryBufferEvictsOldestFirst(t *testing.T) {
	const capacity = 5
	buf := newHistoryBuffer(capacity)

	// Insert capacity+3 entries; exactly the last 5 must remain.
	for i := 0; i < capacity+3; i++ {
		buf.append(entry(i))
		require.LessOrEqual(t, buf.size(), capacity)
	}

	snap := buf.snapshot()
	require.Len(t, snap, capacity)
	assert.Equal(t, "message 3", snap[0].Txt)
	assert.Equal(t, "message 7", snap[capacity-1].Txt)
}

func TestHistoryBufferSnapshotIsIndependent(t *testing.T) {
	buf := newHistoryBuffer(5)
	buf.append(entry(0))

	snap := buf.snapshot()
	buf.append(entry(1))
	snap[0].Txt = "mutated"

	require.Len(t, snap, 1)
	fresh := buf.snapshot()
	require.Len(t, fresh, 2)
	assert.Equal(t, "message 0", fresh[0].Txt)
}

func TestHistoryBufferDefaultsCapacity(t *testing.T) {
	buf := newHistoryBuffer(0)
	for i := 0; i < 150; i++ {
		buf.append(entry(i))
	}
	assert.Equal(t, 100, buf.size())
}
