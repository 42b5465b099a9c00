package collab

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Handler upgrades /ws/map requests and attaches them to the hub. Editors
// are anonymous: the user id comes from the "user" query parameter the
// browser keeps across reloads, or is generated.
type Handler struct {
	hub            *Hub
	defaultMap     string
	originPatterns []string
}

// NewHandler creates the websocket handler. origins are full origins such as
// "http://localhost:5173"; the scheme is stripped for origin matching.
func NewHandler(hub *Hub, defaultMap string, origins []string) *Handler {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		patterns = append(patterns, o)
	}
	return &Handler{hub: hub, defaultMap: defaultMap, originPatterns: patterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mapID := q.Get("map")
	if mapID == "" {
		mapID = h.defaultMap
	}
	userID := q.Get("user")
	if userID == "" {
		userID = "anon-" + uuid.New().String()[:8]
	}
	displayName := q.Get("name")
	if displayName == "" {
		displayName = "Anonymous"
	}
	since := int64(-1)
	if s := q.Get("since"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			since = n
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, userID, displayName, mapID, clientID)

	ctx := r.Context()
	if err := h.hub.Greet(ctx, client, since); err != nil {
		slog.Error("greet client", "error", err, "user", userID)
		conn.Close(websocket.StatusInternalError, "document unavailable")
		return
	}
	h.hub.Register(client)

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
