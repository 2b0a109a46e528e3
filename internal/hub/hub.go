// Package hub provides connection management for WebSocket clients observing
// thread activity and workflow progress.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID       string
	ThreadID string
	Conn     *websocket.Conn
	Send     chan []byte
	hub      *Hub
	mu       sync.Mutex
}

// Hub manages all WebSocket connections, keyed by thread.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Threads maps thread_id to set of connection IDs
	threads map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection

	// Broadcast channel for sending to all of a thread's watchers
	broadcast chan *ThreadMessage

	mu sync.RWMutex
}

// ThreadMessage is used to broadcast a message to a thread's watchers.
type ThreadMessage struct {
	ThreadID string
	Data     []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		threads:     make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *ThreadMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.ThreadID != "" {
				if h.threads[conn.ThreadID] == nil {
					h.threads[conn.ThreadID] = make(map[string]bool)
				}
				h.threads[conn.ThreadID][conn.ID] = true
			}
			h.mu.Unlock()
			log.Printf("Connection registered: %s (thread: %s)", conn.ID, conn.ThreadID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if conn.ThreadID != "" && h.threads[conn.ThreadID] != nil {
					delete(h.threads[conn.ThreadID], conn.ID)
					if len(h.threads[conn.ThreadID]) == 0 {
						delete(h.threads, conn.ThreadID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Printf("Connection unregistered: %s", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if connIDs, ok := h.threads[msg.ThreadID]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						select {
						case conn.Send <- msg.Data:
						default:
							// Buffer full, close the connection
							log.Printf("Connection %s buffer full, closing", connID)
							go h.Unregister(conn)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection bound to a thread.
func (h *Hub) NewConnection(ws *websocket.Conn, threadID string) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Conn:     ws,
		Send:     make(chan []byte, 256),
		hub:      h,
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast sends a message to all connections watching a thread.
func (h *Hub) Broadcast(threadID string, data []byte) {
	h.broadcast <- &ThreadMessage{
		ThreadID: threadID,
		Data:     data,
	}
}

// BroadcastJSON sends a JSON message to all connections watching a thread.
func (h *Hub) BroadcastJSON(threadID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(threadID, data)
	return nil
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasActiveConnections checks if a thread has any active watchers.
func (h *Hub) HasActiveConnections(threadID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connIDs, ok := h.threads[threadID]
	return ok && len(connIDs) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
