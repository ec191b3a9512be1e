package agent

import (
	"sync"
	"time"
)

// DefaultHistorySize is the per-session capacity of the tool-call history.
const DefaultHistorySize = 10

// ToolCallRecord is one dispatched tool call. Records are immutable once
// created; refused calls are never recorded because no dispatch occurred.
type ToolCallRecord struct {
	ToolName  string    `json:"toolName"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
}

// ToolCallHistory tracks recently dispatched tool calls per session.
// Sessions are fully independent: access to different sessions never
// contends on the same lock, access to one session is serialized.
//
// Eviction is capacity-based only (FIFO, oldest first). The recency window
// is applied at query time by HasRecent.
type ToolCallHistory struct {
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	buckets map[string]*sessionBucket
}

type sessionBucket struct {
	mu      sync.Mutex
	records []ToolCallRecord
}

// NewToolCallHistory creates a history with the given per-session capacity.
// A capacity of zero or less falls back to DefaultHistorySize.
func NewToolCallHistory(capacity int) *ToolCallHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &ToolCallHistory{
		capacity: capacity,
		now:      time.Now,
		buckets:  make(map[string]*sessionBucket),
	}
}

// Record appends a tool call for the session, evicting the oldest record
// when the session is at capacity.
func (h *ToolCallHistory) Record(sessionID, toolName string) {
	h.recordAt(sessionID, toolName, h.now())
}

func (h *ToolCallHistory) recordAt(sessionID, toolName string, ts time.Time) {
	b := h.bucket(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) >= h.capacity {
		b.records = b.records[1:]
	}
	b.records = append(b.records, ToolCallRecord{
		ToolName:  toolName,
		Timestamp: ts,
		SessionID: sessionID,
	})
}

// HasRecent reports whether a record for toolName exists in the session's
// history no older than window. Read-only; has no side effects.
func (h *ToolCallHistory) HasRecent(sessionID, toolName string, window time.Duration) bool {
	h.mu.RLock()
	b, ok := h.buckets[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	now := h.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.records) - 1; i >= 0; i-- {
		rec := b.records[i]
		if rec.ToolName == toolName && now.Sub(rec.Timestamp) <= window {
			return true
		}
	}
	return false
}

// Records returns a copy of the session's records, oldest first.
func (h *ToolCallHistory) Records(sessionID string) []ToolCallRecord {
	h.mu.RLock()
	b, ok := h.buckets[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ToolCallRecord, len(b.records))
	copy(out, b.records)
	return out
}

// bucket returns the session's bucket, creating it on first use.
// Buckets live for the process lifetime; capacity bounds their size.
func (h *ToolCallHistory) bucket(sessionID string) *sessionBucket {
	h.mu.RLock()
	b, ok := h.buckets[sessionID]
	h.mu.RUnlock()
	if ok {
		return b
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok = h.buckets[sessionID]; ok {
		return b
	}
	b = &sessionBucket{}
	h.buckets[sessionID] = b
	return b
}
