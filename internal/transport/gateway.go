package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nikhil/clashforge/internal/broadcast"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, replace with proper origin checking
	},
}

// Registry is the connection-row store the gateway keeps in sync with live
// sockets.
type Registry interface {
	PutConnection(ctx context.Context, conn *models.Connection, ttl time.Duration) error
	DeleteConnection(ctx context.Context, connectionID string) error
}

// Gateway owns the live WebSocket connections and is the delivery primitive
// the broadcaster calls. A connection it no longer holds, or one whose
// writer has stalled out, reports broadcast.ErrConnectionGone so the caller
// can prune the registry row.
type Gateway struct {
	registry Registry
	ttl      time.Duration
	log      *logger.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	gateway      *Gateway
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	connectionID string
	userID       string
}

func NewGateway(registry Registry, ttl time.Duration, log *logger.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		ttl:      ttl,
		log:      log,
		clients:  make(map[string]*client),
	}
}

// HandleWebSocket upgrades the request, registers the connection and starts
// the read/write pumps.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.CallerID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("websocket upgrade failed", "error", err)
		return
	}

	connectionID := uuid.NewString()
	row := &models.Connection{
		ConnectionID: connectionID,
		ConnectedAt:  time.Now().UTC(),
	}
	if err := g.registry.PutConnection(r.Context(), row, g.ttl); err != nil {
		g.log.Error("failed to register connection", "connectionId", connectionID, "error", err)
		conn.Close()
		return
	}

	c := &client{
		gateway:      g,
		conn:         conn,
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		connectionID: connectionID,
		userID:       userID,
	}
	g.mu.Lock()
	g.clients[connectionID] = c
	g.mu.Unlock()

	g.log.Info("client connected", "connectionId", connectionID, "userId", userID)

	go c.writePump()
	go c.readPump()
}

// Send delivers one payload to one connection. Returns
// broadcast.ErrConnectionGone when the connection is no longer deliverable.
func (g *Gateway) Send(ctx context.Context, connectionID string, payload []byte) error {
	g.mu.RLock()
	c, ok := g.clients[connectionID]
	g.mu.RUnlock()
	if !ok {
		return broadcast.ErrConnectionGone
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return broadcast.ErrConnectionGone
	default:
		// writer is not draining; the peer is effectively gone
		g.drop(c)
		return broadcast.ErrConnectionGone
	}
}

// drop removes the client once and signals its pumps to stop. The send
// channel is never closed; concurrent senders observe done instead, so a
// racing delivery can never panic on a closed channel.
func (g *Gateway) drop(c *client) {
	g.mu.Lock()
	current, ok := g.clients[c.connectionID]
	if !ok || current != c {
		g.mu.Unlock()
		return
	}
	delete(g.clients, c.connectionID)
	g.mu.Unlock()

	close(c.done)
	c.conn.Close()
	if err := g.registry.DeleteConnection(context.Background(), c.connectionID); err != nil {
		g.log.Warn("failed to delete connection row", "connectionId", c.connectionID, "error", err)
	}
	g.log.Info("client disconnected", "connectionId", c.connectionID, "userId", c.userID)
}

// inboundMessage is the little control protocol clients may speak; anything
// that is not a ping gets an ack.
type inboundMessage struct {
	Type string `json:"type"`
}

// ReadPump pumps control messages from the connection
func (c *client) readPump() {
	defer c.gateway.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.log.Debug("unexpected close", "connectionId", c.connectionID, "error", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		reply := map[string]string{
			"type":      "ack",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if msg.Type == "ping" {
			reply["type"] = "pong"
		}
		payload, err := json.Marshal(reply)
		if err != nil {
			continue
		}
		select {
		case c.send <- payload:
		case <-c.done:
			return
		default:
		}
	}
}

// WritePump pumps outbound messages to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
