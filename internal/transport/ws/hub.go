// Package ws streams run progress to WebSocket subscribers of a thread.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/unfiltered/internal/domain"
)

var (
	// ErrBufferFull is returned when a connection's send buffer is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned when sending to an unregistered connection.
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection represents a single WebSocket connection. Send is closed once,
// under sendMu, when the hub drops the connection.
type Connection struct {
	ID       string
	ThreadID string
	Conn     *websocket.Conn
	Send     chan []byte
	mu       sync.Mutex

	sendMu sync.Mutex
	closed bool
}

// Hub manages all WebSocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// threads maps thread_id to set of connection IDs
	threads map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *threadMessage
	done       chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

type threadMessage struct {
	ThreadID string
	Data     []byte
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		threads:     make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *threadMessage, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the hub's main loop. When ctx is done every connection is
// dropped and later Register/Unregister calls return immediately.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.ThreadID != "" {
				h.bind(conn.ID, conn.ThreadID)
			}
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn_id", conn.ID, "thread_id", conn.ThreadID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.unbind(conn)
				conn.closeSend()
			}
			h.mu.Unlock()
			h.logger.Debug("connection unregistered", "conn_id", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.threads[msg.ThreadID] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				if err := conn.send(msg.Data); errors.Is(err, ErrBufferFull) {
					h.logger.Warn("connection buffer full, closing", "conn_id", connID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a connection subscribed to threadID. It still has
// to be registered.
func (h *Hub) NewConnection(ws *websocket.Conn, threadID string) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Conn:     ws,
		Send:     make(chan []byte, 256),
	}
}

// Register registers a connection with the hub. After the hub stopped the
// connection is closed instead.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.closeSend()
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		conn.closeSend()
		delete(h.connections, id)
	}
	h.threads = make(map[string]map[string]bool)
	h.logger.Debug("hub stopped, connections closed")
}

// Subscribe moves a connection to another thread.
func (h *Hub) Subscribe(conn *Connection, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbind(conn)
	conn.ThreadID = threadID
	h.bind(conn.ID, threadID)
}

// bind and unbind expect h.mu to be held.
func (h *Hub) bind(connID, threadID string) {
	if h.threads[threadID] == nil {
		h.threads[threadID] = make(map[string]bool)
	}
	h.threads[threadID][connID] = true
}

func (h *Hub) unbind(conn *Connection) {
	if conn.ThreadID == "" || h.threads[conn.ThreadID] == nil {
		return
	}
	delete(h.threads[conn.ThreadID], conn.ID)
	if len(h.threads[conn.ThreadID]) == 0 {
		delete(h.threads, conn.ThreadID)
	}
}

// Publish queues a run update for every subscriber of the thread. Updates
// are dropped when the hub is saturated; the run is never blocked.
func (h *Hub) Publish(threadID string, update domain.RunUpdate) {
	if !h.HasSubscribers(threadID) {
		return
	}
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Warn("failed to marshal run update", "thread_id", threadID, "error", err)
		return
	}
	select {
	case h.broadcast <- &threadMessage{ThreadID: threadID, Data: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping run update", "thread_id", threadID, "type", update.Type)
	}
}

// SendJSON sends a JSON message to a specific connection.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.send(data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers reports whether a thread has any active connections.
func (h *Hub) HasSubscribers(threadID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[threadID]) > 0
}

func (c *Connection) send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
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
