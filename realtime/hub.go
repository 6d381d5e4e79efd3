// Package realtime pushes task and notification events to connected clients.
package realtime

import (
	"sync"

	"taskhub/logging"

	"go.uber.org/zap"
)

const (
	// sendBufferSize bounds each client's outbound queue. Messages for a full
	// queue are dropped rather than blocking the emitter.
	sendBufferSize = 256
)

// Message is the JSON frame written to clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client is one connection of a user. A user may hold several.
type Client struct {
	UserID string
	send   chan Message
	once   sync.Once
}

// Messages returns the outbound queue. It is closed on Unregister.
func (c *Client) Messages() <-chan Message {
	return c.send
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events out to connected clients. It implements services.Pusher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     logging.OrNop(log),
	}
}

func (h *Hub) Register(userID string) *Client {
	c := &Client{UserID: userID, send: make(chan Message, sendBufferSize)}

	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("realtime client registered", zap.String("user_id", userID))
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	c.close()
	h.log.Debug("realtime client unregistered", zap.String("user_id", c.UserID))
}

// Emit broadcasts to every connected client.
func (h *Hub) Emit(event string, payload interface{}) {
	msg := Message{Type: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			h.deliver(c, msg)
		}
	}
}

// EmitToUser sends to every connection of userID.
func (h *Hub) EmitToUser(userID, event string, payload interface{}) {
	msg := Message{Type: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		h.deliver(c, msg)
	}
}

// reply queues msg for c alone, if c is still registered.
func (h *Hub) reply(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.UserID][c]; ok {
		h.deliver(c, msg)
	}
}

// deliver must be called with h.mu held so the channel cannot be closed concurrently.
func (h *Hub) deliver(c *Client, msg Message) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("send buffer full, dropping message",
			zap.String("user_id", c.UserID),
			zap.String("type", msg.Type))
	}
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close unregisters every client, which ends their write loops.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}
