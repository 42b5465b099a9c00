package collab

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mapeditor/mapeditor/internal/typeid"
)

// Change is one document mutation broadcast to editors as doc.changed.
type Change struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	EntityID  string          `json:"entityId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ChangeLog numbers changes and keeps the most recent ones so a client that
// reconnects can catch up without reloading the document.
type ChangeLog struct {
	mu      sync.RWMutex
	seq     int64
	entries []Change
	limit   int
}

func NewChangeLog(limit int) *ChangeLog {
	if limit <= 0 {
		limit = 256
	}
	return &ChangeLog{limit: limit}
}

// Append assigns the next sequence number to a change and records it.
func (l *ChangeLog) Append(kind, entityID string, data any) Change {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	c := Change{
		ID:        typeid.NewOpID(),
		Seq:       l.seq,
		Kind:      kind,
		EntityID:  entityID,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}
	l.entries = append(l.entries, c)
	if len(l.entries) > l.limit {
		l.entries = append([]Change(nil), l.entries[len(l.entries)-l.limit:]...)
	}
	return c
}

// Seq returns the sequence number of the latest change.
func (l *ChangeLog) Seq() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Since returns the changes after seq. ok is false when some of them have
// already been evicted and the caller must resync from the full document.
func (l *ChangeLog) Since(seq int64) (changes []Change, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == l.seq {
		return nil, true
	}
	// a seq from before a restart is ahead of ours
	if seq > l.seq {
		return nil, false
	}
	if seq < 0 || len(l.entries) == 0 || l.entries[0].Seq > seq+1 {
		return nil, false
	}
	start := int(seq + 1 - l.entries[0].Seq)
	return append([]Change(nil), l.entries[start:]...), true
}
