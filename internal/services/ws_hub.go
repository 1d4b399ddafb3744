package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// WSConn is the part of a WebSocket connection the hub writes to
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered WebSocket connection.
// gorilla/websocket allows a single concurrent writer, so writes are serialized here.
type Client struct {
	UserID string
	conn   WSConn
	mu     sync.Mutex
}

// Send writes a message to the connection
func (c *Client) Send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub tracks WebSocket connections per user. A user may hold several.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]map[*Client]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]map[*Client]struct{}),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn WSConn) *Client {
	client := &Client{UserID: userID, conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[userID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.connections[userID] = clients
	}
	clients[client] = struct{}{}

	log.Info().
		Str("user_id", userID).
		Int("connections", len(clients)).
		Msg("WebSocket connection registered")

	return client
}

// Unregister removes and closes a connection
func (h *WSHub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.connections, client.UserID)
	}
	client.conn.Close()

	log.Info().Str("user_id", client.UserID).Msg("WebSocket connection unregistered")
}

// IsOnline checks if a user has at least one connection
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

// SendToUser sends a message to every connection of a user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.connections[userID]))
	for c := range h.connections[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("user %s is not connected", userID)
	}

	var failed int
	for _, c := range clients {
		if err := c.Send(message); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to write to WebSocket connection")
			h.Unregister(c)
			failed++
		}
	}
	if failed == len(clients) {
		return fmt.Errorf("failed to send message to user %s", userID)
	}
	return nil
}

// Close closes every registered connection
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for c := range clients {
			c.conn.Close()
		}
		delete(h.connections, userID)
	}
}
