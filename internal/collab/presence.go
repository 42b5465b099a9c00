package collab

import (
	"math"
	"sync"
)

// PresenceTracker holds the latest presence of every client in a room,
// keyed by client id so one user can have several tabs open.
type PresenceTracker struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		presences: make(map[string]*PresencePayload),
	}
}

// Update stores p for clientID. A cursor with non-finite coordinates is
// dropped rather than relayed.
func (pt *PresenceTracker) Update(clientID string, p *PresencePayload) {
	if c := p.Cursor; c != nil && (math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0)) {
		p.Cursor = nil
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.presences[clientID] = p
}

func (pt *PresenceTracker) Remove(clientID string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	delete(pt.presences, clientID)
}

func (pt *PresenceTracker) Snapshot() map[string]*PresencePayload {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pt.presences))
	for k, v := range pt.presences {
		result[k] = v
	}
	return result
}

func (pt *PresenceTracker) StateMessage() *Message {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: pt.Snapshot()})
}
