package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Message types exchanged on the stream.
const (
	TypeSubscribed = "subscribed"
	TypeSubscribe  = "subscribe"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeError      = "error"
)

// ClientMessage is a message sent by a stream subscriber.
type ClientMessage struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ServerMessage is a control message sent to a subscriber.
type ServerMessage struct {
	Type     string `json:"type"`
	Ts       int64  `json:"ts"`
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Options tunes connection timeouts.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultOptions returns the stream defaults.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Server handles WebSocket connections.
type Server struct {
	opts     Options
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(h *Hub, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts: opts,
		hub:  h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// RegisterRoutes registers the stream route.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/threads/:thread_id/stream", s.HandleStream)
}

// HandleStream upgrades the request and subscribes it to the thread.
func (s *Server) HandleStream(c echo.Context) error {
	threadID := c.Param("thread_id")
	if threadID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "thread_id is required")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return nil
	}

	conn := s.hub.NewConnection(ws, threadID)
	s.hub.Register(conn)
	ws.SetReadLimit(s.opts.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	_ = s.hub.SendJSON(conn, ServerMessage{Type: TypeSubscribed, Ts: time.Now().UnixMilli(), ThreadID: threadID})
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", "conn_id", conn.ID, "error", err)
			}
			break
		}
		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "invalid JSON message")
		return
	}

	switch msg.Type {
	case TypePing:
		_ = s.hub.SendJSON(conn, ServerMessage{Type: TypePong, Ts: time.Now().UnixMilli(), ThreadID: conn.ThreadID})
	case TypeSubscribe:
		if msg.ThreadID == "" {
			s.sendError(conn, "thread_id is required")
			return
		}
		s.hub.Subscribe(conn, msg.ThreadID)
		_ = s.hub.SendJSON(conn, ServerMessage{Type: TypeSubscribed, Ts: time.Now().UnixMilli(), ThreadID: msg.ThreadID})
	default:
		s.sendError(conn, "unknown message type: "+msg.Type)
	}
}

func (s *Server) sendError(conn *Connection, message string) {
	_ = s.hub.SendJSON(conn, ServerMessage{Type: TypeError, Ts: time.Now().UnixMilli(), ThreadID: conn.ThreadID, Message: message})
}
