package network

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosmic-idle/server/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Per-second action budget
	windowStart time.Time
	windowCount int
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.tuning.ClientSendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.quit:
		close(c.send)
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.quit:
	}
}

// ReadPump reads actions from the websocket connection and applies them.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
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
				c.hub.logger.Warn("websocket read failed", "error", err)
				if c.hub.metrics != nil {
					c.hub.metrics.RecordWSError()
				}
			}
			break
		}
		if c.hub.metrics != nil {
			c.hub.metrics.RecordWSMessage(true)
		}

		var action engine.Action
		if err := json.Unmarshal(message, &action); err != nil {
			c.enqueue(Envelope{Type: MessageError, Error: "malformed action"})
			continue
		}
		c.handleAction(action)
	}
}

func (c *Client) handleAction(action engine.Action) {
	if !c.allow(time.Now()) {
		c.enqueue(Envelope{Type: MessageError, Error: "rate limit exceeded"})
		return
	}

	applied, err := c.hub.dispatch(action)
	if err != nil {
		if !errors.Is(err, engine.ErrUnknownAction) && !errors.Is(err, engine.ErrInvalidArgument) && !errors.Is(err, ErrNotAccepting) {
			c.hub.logger.Error("action failed", "action", action.Type, "error", err)
		}
		c.enqueue(Envelope{Type: MessageError, Error: err.Error()})
		return
	}
	c.enqueue(Envelope{Type: MessageAck, Data: Ack{Action: action.Type, Applied: applied}})
}

// allow enforces MaxMessagesPerSecond with a fixed one-second window.
func (c *Client) allow(now time.Time) bool {
	limit := c.hub.tuning.MaxMessagesPerSecond
	if limit <= 0 {
		return true
	}
	if now.Sub(c.windowStart) >= time.Second {
		c.windowStart = now
		c.windowCount = 0
	}
	if c.windowCount >= limit {
		return false
	}
	c.windowCount++
	return true
}

// enqueue sends a direct reply to this client only. It never blocks; a
// full buffer drops the reply. Clients the hub has dropped are skipped,
// since their send channel is closed.
func (c *Client) enqueue(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.hub.logger.Error("failed to serialize reply", "error", err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// WritePump pumps messages from the hub to the websocket connection. Each
// envelope goes out as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
