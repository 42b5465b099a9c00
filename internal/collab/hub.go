package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mapeditor/mapeditor/internal/document"
	"github.com/mapeditor/mapeditor/internal/engine"
	"github.com/mapeditor/mapeditor/internal/metrics"
)

// DocumentSource loads the current map document for newly joined editors.
type DocumentSource interface {
	Document(ctx context.Context) (*document.MapDocument, error)
}

// DocumentFunc adapts a function to DocumentSource.
type DocumentFunc func(ctx context.Context) (*document.MapDocument, error)

func (f DocumentFunc) Document(ctx context.Context) (*document.MapDocument, error) { return f(ctx) }

// ViewportSessions remembers each user's last viewport.
type ViewportSessions interface {
	Save(userID string, v engine.Viewport)
	Load(ctx context.Context, userID string) (engine.Viewport, error)
}

type Room struct {
	mapID    string
	clients  map[string]*Client // clientID -> client
	presence *PresenceTracker
}

func NewRoom(mapID string) *Room {
	return &Room{
		mapID:    mapID,
		clients:  make(map[string]*Client),
		presence: NewPresenceTracker(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // mapID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	docs     DocumentSource
	sessions ViewportSessions
	changes  *ChangeLog
}

// NewHub creates a hub. sessions may be nil, which disables viewport
// restore on join.
func NewHub(docs DocumentSource, sessions ViewportSessions) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		docs:       docs,
		sessions:   sessions,
		changes:    NewChangeLog(256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Greet queues the opening messages for a client that has not been
// registered yet: welcome, then either a full doc.sync or nothing when the
// client's since sequence can still be served from the change log, then the
// user's saved viewport. A negative since always forces a full sync.
func (h *Hub) Greet(ctx context.Context, client *Client, since int64) error {
	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
		MapID:       client.MapID,
	}))

	if _, ok := h.changes.Since(since); since >= 0 && ok {
		client.syncSeq = since
	} else {
		// seq is read before the document so the snapshot is never older
		seq := h.changes.Seq()
		doc, err := h.docs.Document(ctx)
		if err != nil {
			client.Send(newMessage(TypeError, ErrorPayload{Message: "failed to load document"}))
			return fmt.Errorf("load document: %w", err)
		}
		msg := newMessage(TypeDocSync, DocSyncPayload{Document: doc, Seq: seq})
		msg.Seq = seq
		client.Send(msg)
		client.syncSeq = seq
	}

	if h.sessions != nil {
		if v, err := h.sessions.Load(ctx, client.UserID); err == nil {
			client.Send(newMessage(TypeViewportRestore, v))
		}
	}
	return nil
}

// Publish records a document change and broadcasts it to every room.
func (h *Hub) Publish(kind, entityID string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	change := h.changes.Append(kind, entityID, data)
	metrics.DocChanges.WithLabelValues(kind).Inc()

	msg := changeMessage(change)
	for _, room := range h.rooms {
		for _, c := range room.clients {
			c.Send(msg)
		}
	}
}

func changeMessage(c Change) *Message {
	msg := newMessage(TypeDocChanged, c)
	msg.Seq = c.Seq
	return msg
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.MapID]
	if !ok {
		room = NewRoom(client.MapID)
		h.rooms[client.MapID] = room
	}
	room.clients[client.ClientID] = client

	// Replay changes published between the client's sync and now. Holding
	// h.mu keeps Publish from interleaving.
	missed, ok := h.changes.Since(client.syncSeq)
	if ok {
		for _, c := range missed {
			client.Send(changeMessage(c))
		}
	} else {
		client.Send(newMessage(TypeDocStale, nil))
	}
	h.mu.Unlock()

	metrics.ActiveWebSockets.Inc()

	client.Send(room.presence.StateMessage())

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	joinMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.MapID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "map", client.MapID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.MapID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.MapID)
	}
	h.mu.Unlock()

	metrics.ActiveWebSockets.Dec()

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	leaveMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.MapID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "map", client.MapID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for mapID, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
			metrics.ActiveWebSockets.Dec()
		}
		delete(h.rooms, mapID)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		metrics.CollabMessages.WithLabelValues(msg.Type).Inc()
		h.handlePresenceUpdate(sender, msg)
	case TypeViewportSave:
		metrics.CollabMessages.WithLabelValues(msg.Type).Inc()
		h.handleViewportSave(sender, msg)
	default:
		metrics.CollabMessages.WithLabelValues("unknown").Inc()
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type: " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.MapID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.MapID, outMsg, sender.ClientID)
}

func (h *Hub) handleViewportSave(sender *Client, msg *Message) {
	if h.sessions == nil {
		return
	}
	var v engine.Viewport
	if err := json.Unmarshal(msg.Payload, &v); err != nil || !v.IsFinite() || v.Scale <= 0 {
		slog.Warn("invalid viewport payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid viewport"}))
		return
	}
	h.sessions.Save(sender.UserID, v)
}

func (h *Hub) broadcastToRoom(mapID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[mapID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
