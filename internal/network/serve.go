package network

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for local dev
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and attaches the connection to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if max := hub.tuning.MaxClients; max > 0 && hub.ClientCount() >= max {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", "error", err)
		if hub.metrics != nil {
			hub.metrics.RecordWSError()
		}
		return
	}

	client := NewClient(hub, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
