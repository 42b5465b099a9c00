package collab

import (
	"encoding/json"

	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/engine"
)

type Message struct {
	Type     string          `json:"type"`
	MapID    string          `json:"mapId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// PresencePayload carries a collaborator's cursor in logical map
// coordinates, so every editor can draw it under its own viewport.
type PresencePayload struct {
	Cursor      *engine.LogicalPoint `json:"cursor,omitempty"`
	Selection   []string             `json:"selection,omitempty"`
	DisplayName string               `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	MapID       string `json:"mapId"`
}

type DocSyncPayload struct {
	Document *document.MapDocument `json:"document"`
	Seq      int64                 `json:"seq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync    = "doc.sync"
	TypeDocChanged = "doc.changed"
	TypeDocStale   = "doc.stale"

	// Viewport continuity
	TypeViewportSave    = "viewport.save"
	TypeViewportRestore = "viewport.restore"
)

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	return &Message{Type: typ, Payload: data}
}
