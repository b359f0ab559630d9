// Package ws pushes live notifications to connected review dashboards:
// freshly stored results, anomaly findings, and generic refresh hints.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"proctrace/internal/telemetry"
)

// Notice types pushed to clients.
const (
	NoticeUpdateNeeded = "update_needed"
	NoticeNewResult    = "new_result"
	NoticeAnomaly      = "anomaly_detected"
)

// Notice is one push to review clients.
type Notice struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	TestType  string    `json:"testType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Config tunes connection keepalive and buffering.
type Config struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBufferSize int
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		SendBufferSize: 32,
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected review clients and fans notices out to them.
type Hub struct {
	cfg Config
	log *zap.Logger
	tel *telemetry.Telemetry

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func NewHub(cfg Config, log *zap.Logger, tel *telemetry.Telemetry) *Hub {
	return &Hub{
		cfg: cfg,
		log: log,
		tel: tel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and registers the connection. The caller has
// already authenticated the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.tel.WSClientConnected()
	h.log.Info("Review client connected", zap.String("client_id", c.id))

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Broadcast queues a notice for every connected client. Clients whose send
// buffer is full miss this notice; the next one will catch them up.
func (h *Hub) Broadcast(n Notice) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	data, err := json.Marshal(n)
	if err != nil {
		h.log.Error("Failed to marshal notice", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("Client send buffer full, dropping notice",
				zap.String("client_id", c.id),
				zap.String("type", n.Type),
			)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		close(c.send)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		h.tel.WSClientDisconnected()
		h.log.Info("Review client disconnected", zap.String("client_id", id))
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		h.remove(c.id)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		c.conn.Close()
		h.remove(c.id)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		return nil
	})

	// Clients are listeners; inbound frames only keep the connection alive.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Websocket read error", zap.Error(err), zap.String("client_id", c.id))
			}
			return
		}
	}
}
