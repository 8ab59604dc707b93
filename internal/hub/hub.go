// Package hub fans real-time payloads out to connected clients. Every user
// has a logical room named user_{id}; the dispatcher emits reminder payloads
// into it without caring whether anyone is connected.
package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client pairs a connection with its write lock. gorilla/websocket allows at
// most one concurrent writer per connection, and dispatch workers can emit
// into the same room simultaneously.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks live websocket connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*client]struct{})}
}

// Room returns the channel name a user's payloads are addressed to.
func Room(userID uuid.UUID) string {
	return fmt.Sprintf("user_%s", userID)
}

// Emit pushes a JSON payload to every connection in the user's room. A room
// with no connections is not an error: the emit is fire-and-forget, matching
// real-time room semantics where offline users simply miss the message.
// Emit is safe to call from concurrent dispatch workers.
func (h *Hub) Emit(userID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[userID]))
	for cl := range h.clients[userID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.write(data); err != nil {
			zlog.Logger.Warn().Err(err).Str("room", Room(userID)).Msg("dropping dead websocket connection")
			h.remove(userID, cl)
			cl.conn.Close()
		}
	}

	return nil
}

// ServeWS upgrades an HTTP request to a websocket connection and keeps it in
// the user's room until the client goes away. The user is identified by the
// user_id query parameter; authentication happens upstream.
func (h *Hub) ServeWS(c *ginext.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to upgrade websocket")
		return
	}

	cl := &client{conn: conn}
	h.add(userID, cl)
	zlog.Logger.Info().Str("room", Room(userID)).Msg("websocket client connected")

	go func() {
		defer func() {
			h.remove(userID, cl)
			conn.Close()
			zlog.Logger.Info().Str("room", Room(userID)).Msg("websocket client disconnected")
		}()

		// Drain incoming frames; the hub is push-only and only needs to
		// notice the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(userID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][cl] = struct{}{}
}

func (h *Hub) remove(userID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[userID]; ok {
		delete(clients, cl)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}
