package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Session event types pushed to connected front ends
const (
	EventSessionStatus  = "session_status"
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
)

// ErrTooManyConnections is returned by Serve when the hub is full
var ErrTooManyConnections = errors.New("event connection limit reached")

// EventMessage is a message sent over the events socket. Tokens are never
// part of an event.
type EventMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	EventID   string      `json:"eventId"`
}

// SessionEvent is the payload of the session event types
type SessionEvent struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

type eventConn struct {
	id   string
	conn *websocket.Conn
	send chan EventMessage
}

// EventHub fans session changes out to every open tab of the web front end
// so that signing out in one tab signs out all of them
type EventHub struct {
	mutex       sync.RWMutex
	connections map[string]*eventConn
	upgrader    websocket.Upgrader
	logger      *logrus.Entry
	seq         atomic.Uint64

	pingInterval   time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxConnections int
}

// NewEventHub creates an empty hub. The upgrader keeps gorilla's default
// same-origin check.
func NewEventHub(logger *logrus.Entry) *EventHub {
	return &EventHub{
		connections: make(map[string]*eventConn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:         logger,
		pingInterval:   30 * time.Second,
		readTimeout:    60 * time.Second,
		writeTimeout:   10 * time.Second,
		maxConnections: 32,
	}
}

// Serve upgrades the request and sends first as the opening message
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request, first EventMessage) error {
	h.mutex.RLock()
	full := len(h.connections) >= h.maxConnections
	h.mutex.RUnlock()
	if full {
		return ErrTooManyConnections
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &eventConn{
		id:   fmt.Sprintf("conn_%d", h.seq.Add(1)),
		conn: conn,
		send: make(chan EventMessage, 16),
	}
	c.send <- first

	h.mutex.Lock()
	h.connections[c.id] = c
	total := len(h.connections)
	h.mutex.Unlock()

	h.logger.WithFields(logrus.Fields{
		"connection_id": c.id,
		"remote_addr":   r.RemoteAddr,
		"total_conns":   total,
	}).Debug("Event connection registered")

	go h.writePump(c)
	go h.readPump(c)

	return nil
}

// NewMessage stamps a message with time and ID
func (h *EventHub) NewMessage(eventType string, data interface{}) EventMessage {
	return EventMessage{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		EventID:   fmt.Sprintf("evt_%d", h.seq.Add(1)),
	}
}

// Broadcast sends an event to every connection. A connection whose buffer
// is full is dropped.
func (h *EventHub) Broadcast(eventType string, data interface{}) {
	message := h.NewMessage(eventType, data)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, c := range h.connections {
		select {
		case c.send <- message:
		default:
			h.logger.WithField("connection_id", id).Warn("Event connection buffer full, dropping connection")
			h.removeLocked(id)
		}
	}
}

// Count returns the number of open connections
func (h *EventHub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close drops every connection
func (h *EventHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id := range h.connections {
		h.removeLocked(id)
	}
}

func (h *EventHub) remove(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(id)
}

func (h *EventHub) removeLocked(id string) {
	if c, exists := h.connections[id]; exists {
		delete(h.connections, id)
		close(c.send)
	}
}

func (h *EventHub) writePump(c *eventConn) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				h.logger.WithError(err).WithField("connection_id", c.id).Debug("Failed to write event")
				h.remove(c.id)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c.id)
				return
			}
		}
	}
}

// readPump only watches for the peer going away; clients send nothing
func (h *EventHub) readPump(c *eventConn) {
	defer h.remove(c.id)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
