// Package websocket streams booking changes to connected clients.
//
// Every message passes through the hub loop, which numbers it. Clients see
// messages in broadcast order and can detect a gap in Seq after being
// dropped for falling behind.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message types.
const (
	TypeBookingAdded   = "booking.added"
	TypeBookingDeleted = "booking.deleted"
	TypeSyncCompleted  = "sync.completed"
	TypeSyncFailed     = "sync.failed"
)

// Message is one update sent to clients.
type Message struct {
	Seq       uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

const (
	queueSize  = 256
	sendBuffer = 64
)

// Hub fans messages out to clients.
type Hub struct {
	logger *zerolog.Logger

	queue  chan Message
	joins  chan *Client
	leaves chan *Client

	// owned by Run
	seq uint64

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub. Nothing is delivered until Run is called.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		queue:   make(chan Message, queueSize),
		joins:   make(chan *Client),
		leaves:  make(chan *Client),
		clients: make(map[string]*Client),
	}
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				h.drop(id, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.joins:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("Update stream client joined")
		case c := <-h.leaves:
			h.mu.Lock()
			if h.clients[c.id] == c {
				h.drop(c.id, c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("Update stream client left")
		case msg := <-h.queue:
			h.seq++
			msg.Seq = h.seq
			h.deliver(msg)
		}
	}
}

// deliver hands msg to every client. A client whose buffer is full is
// dropped instead of stalling the others.
func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("client_id", id).Uint64("seq", msg.Seq).Msg("Update stream client too slow, dropped")
			h.drop(id, c)
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(id string, c *Client) {
	delete(h.clients, id)
	close(c.send)
}

// Register adds a client. Run must be running.
func (h *Hub) Register(c *Client) {
	h.joins <- c
}

// Broadcast queues msg for every client, stamping it with the current time
// when unset. A full queue drops the message.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case h.queue <- msg:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("Update queue full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection subscribed to the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient wraps conn for hub.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{id: id, hub: hub, conn: conn, send: make(chan Message, sendBuffer)}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// clients only send control frames
	readLimit = 512
)

// Serve writes queued messages in the background and reads the connection
// until the peer goes away, then leaves the hub.
func (c *Client) Serve() {
	go c.write()
	c.read()
}

func (c *Client) read() {
	defer func() {
		c.hub.leaves <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Str("client_id", c.id).Msg("Update stream read failed")
			}
			return
		}
	}
}

func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				kind = websocket.CloseMessage
				break
			}
			b, err := json.Marshal(msg)
			if err != nil {
				c.hub.logger.Error().Err(err).Str("type", msg.Type).Msg("Encoding update failed")
				continue
			}
			kind, data = websocket.TextMessage, b
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}
