package network

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
	"github.com/cosmic-idle/server/internal/platform/optimization"
)

// Envelope types pushed to clients.
const (
	MessageState = "state"
	MessageEvent = "event"
	MessageAck   = "ack"
	MessageError = "error"
)

// ErrNotAccepting is returned for actions that arrive during shutdown.
var ErrNotAccepting = errors.New("server is shutting down")

// Envelope is the frame every server message is wrapped in.
type Envelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Ack answers a client action.
type Ack struct {
	Action  engine.ActionType `json:"action"`
	Applied bool              `json:"applied"`
}

// Game is what the hub needs from the engine.
type Game interface {
	Dispatch(a engine.Action) (bool, error)
	Snapshot() engine.Snapshot
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	mu         sync.Mutex

	// gate is held for reading around every Dispatch. StopAccepting takes
	// it for writing, so once it returns no action is in flight.
	gate      sync.RWMutex
	accepting bool

	game    Game
	tuning  *optimization.Config
	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewHub initializes a new WebSocket Hub.
func NewHub(game Game, tuning *optimization.Config, log *logger.Logger, m *metrics.Collector) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	return &Hub{
		broadcast:  make(chan []byte, tuning.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		accepting:  true,
		game:       game,
		tuning:     tuning,
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.recordConnection(1)
			h.logger.Info("websocket client connected", "clients", h.ClientCount())
			h.sendState(client)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("websocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					if h.metrics != nil {
						h.metrics.RecordWSMessage(false)
					}
				default:
					// Slow consumer
					h.drop(client)
					if h.metrics != nil {
						h.metrics.RecordWSError()
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client. Caller holds mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.recordConnection(-1)
}

func (h *Hub) recordConnection(delta int64) {
	if h.metrics != nil {
		h.metrics.RecordWSConnection(delta)
	}
}

// StopAccepting refuses every later action and waits for the ones already
// dispatching to finish. Connections stay open until Run's context ends.
func (h *Hub) StopAccepting() {
	h.gate.Lock()
	defer h.gate.Unlock()
	if h.accepting {
		h.accepting = false
		h.logger.Info("websocket hub no longer accepting actions")
	}
}

// dispatch applies an action unless the hub has stopped accepting them.
func (h *Hub) dispatch(action engine.Action) (bool, error) {
	h.gate.RLock()
	defer h.gate.RUnlock()
	if !h.accepting {
		return false, ErrNotAccepting
	}
	return h.game.Dispatch(action)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast wraps data in an envelope and queues it for every client.
// When the queue is full the message is dropped; the next state push
// supersedes it.
func (h *Hub) Broadcast(kind string, data interface{}) {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("failed to serialize broadcast", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping message", "type", kind)
	}
}

// BroadcastEvent pushes one game event to all clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(MessageEvent, event)
}

// BroadcastState pushes the current snapshot to all clients.
func (h *Hub) BroadcastState() {
	h.Broadcast(MessageState, h.game.Snapshot())
}

// sendState pushes the snapshot to one client, used on connect.
func (h *Hub) sendState(c *Client) {
	c.enqueue(Envelope{Type: MessageState, Data: h.game.Snapshot()})
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes
// new events to the Hub. The hub runs independently from the engine lock.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	go func() {
		poll := time.NewTicker(interval)
		defer poll.Stop()

		lastSeq := eventLog.LastSeq()

		for {
			select {
			case <-ctx.Done():
				return
			case <-poll.C:
				for _, event := range eventLog.Since(lastSeq) {
					h.BroadcastEvent(event)
					lastSeq = event.Seq
				}
			}
		}
	}()
}

// StartStateBroadcaster pushes a snapshot every interval while clients
// are connected.
func (h *Hub) StartStateBroadcaster(ctx context.Context, interval time.Duration) {
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if h.ClientCount() > 0 {
					h.BroadcastState()
				}
			}
		}
	}()
}
