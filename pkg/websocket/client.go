package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection to the feed.
type Client struct {
	ID   string
	Send chan *Message

	conn *websocket.Conn
	hub  *Hub
	log  *zap.Logger

	closeOnce sync.Once
}

// NewClient wraps conn. log may be nil.
func NewClient(id string, conn *websocket.Conn, hub *Hub, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		ID:   id,
		Send: make(chan *Message, sendBufferSize),
		conn: conn,
		hub:  hub,
		log:  log.With(zap.String("client_id", id)),
	}
}

// enqueue drops msg when the client is too slow to keep up.
func (c *Client) enqueue(msg *Message) {
	defer func() {
		// Send may already be closed by a concurrent unregister
		_ = recover()
	}()
	select {
	case c.Send <- msg:
	default:
		droppedMessages.Inc()
		c.log.Debug("feed client send buffer full, dropping message")
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// ReadPump reads client frames until the connection fails, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("feed client read failed", zap.Error(err))
			}
			return
		}
		c.hub.HandleMessage(c, &msg)
	}
}

// WritePump writes queued messages and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NewUpgrader returns an upgrader that accepts the given origins; "*" or an
// empty list accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// Serve upgrades the request, registers the client and starts its pumps.
// After Stop the connection is closed and ErrHubStopped returned.
func Serve(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, clientID string, log *zap.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(clientID, conn, hub, log)
	select {
	case hub.Register <- client:
	case <-hub.done:
		conn.Close()
		return ErrHubStopped
	}

	go client.WritePump()
	go client.ReadPump()
	return nil
}
