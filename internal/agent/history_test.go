package agent

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryHasRecent(t *testing.T) {
	h := NewToolCallHistory(10)
	h.Record("s1", "list_events")

	assert.True(t, h.HasRecent("s1", "list_events", 30*time.Second))
	assert.False(t, h.HasRecent("s1", "delete_event", 30*time.Second))
	assert.False(t, h.HasRecent("s2", "list_events", 30*time.Second), "sessions are isolated")
}

func TestHistoryWindowBoundary(t *testing.T) {
	h := NewToolCallHistory(10)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Second

	h.now = func() time.Time { return base }

	// Just inside the window.
	h.recordAt("s1", "list_events", base.Add(-window+time.Millisecond))
	assert.True(t, h.HasRecent("s1", "list_events", window))

	// Exactly at the window edge still qualifies.
	h2 := NewToolCallHistory(10)
	h2.now = func() time.Time { return base }
	h2.recordAt("s1", "list_events", base.Add(-window))
	assert.True(t, h2.HasRecent("s1", "list_events", window))

	// Just past the window does not.
	h3 := NewToolCallHistory(10)
	h3.now = func() time.Time { return base }
	h3.recordAt("s1", "list_events", base.Add(-window-time.Millisecond))
	assert.False(t, h3.HasRecent("s1", "list_events", window))
}

func TestHistoryCapacityEviction(t *testing.T) {
	h := NewToolCallHistory(3)
	for i := 0; i < 5; i++ {
		h.Record("s1", fmt.Sprintf("tool_%d", i))
	}

	records := h.Records("s1")
	require.Len(t, records, 3)
	assert.Equal(t, "tool_2", records[0].ToolName, "oldest evicted first")
	assert.Equal(t, "tool_3", records[1].ToolName)
	assert.Equal(t, "tool_4", records[2].ToolName)
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewToolCallHistory(0)
	for i := 0; i < DefaultHistorySize+5; i++ {
		h.Record("s1", "list_events")
	}
	assert.Len(t, h.Records("s1"), DefaultHistorySize)
}

func TestHistoryConcurrentSessions(t *testing.T) {
	h := NewToolCallHistory(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := fmt.Sprintf("s%d", n%4)
			for j := 0; j < 100; j++ {
				h.Record(session, "list_events")
				h.HasRecent(session, "list_events", time.Minute)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.Len(t, h.Records(fmt.Sprintf("s%d", i)), 10)
	}
}

func TestHistoryRecordsReturnsCopy(t *testing.T) {
	h := NewToolCallHistory(10)
	h.Record("s1", "list_events")

	records := h.Records("s1")
	records[0].ToolName = "mutated"

	assert.Equal(t, "list_events", h.Records("s1")[0].ToolName)
}
