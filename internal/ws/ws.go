// Package ws streams conversion job progress to browser clients.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// SnapshotFunc returns the session state sent to new or re-syncing clients.
type SnapshotFunc func() (any, error)

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
	mu         sync.RWMutex
	snapshot   SnapshotFunc
	origins    []string
	done       chan struct{}
}

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetSnapshot sets the function producing the full_state payload.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.snapshot = fn
}

// AllowOrigins accepts cross-origin connections from the given host
// patterns. Same-origin connections are always accepted.
func (h *Hub) AllowOrigins(patterns ...string) {
	h.origins = append(h.origins, patterns...)
}

// Run starts the hub's event loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues a message for every connected client. Messages are
// dropped when the queue is full so job goroutines never block on slow
// browsers.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

// BroadcastJSON broadcasts payload with the given message type.
func (h *Hub) BroadcastJSON(msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error("failed to create broadcast message", "type", msgType, "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(errMsg string) {
	h.BroadcastJSON(MsgError, map[string]string{"message": errMsg})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fullState() ([]byte, bool) {
	if h.snapshot == nil {
		return nil, false
	}
	state, err := h.snapshot()
	if err != nil {
		h.logger.Warn("building websocket snapshot", "error", err)
		return nil, false
	}
	msg, err := NewMessage(MsgFullState, state)
	if err != nil {
		return nil, false
	}
	return msg, true
}
