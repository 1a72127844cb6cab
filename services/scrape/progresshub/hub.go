// Package progresshub fans scrape progress snapshots out to websocket
// subscribers. Delivery is best effort: slow or dead clients are
// dropped, never buffered, and late subscribers only see snapshots
// published after they connect.
package progresshub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dragdex-backend/services/scrape"
)

const writeTimeout = 2 * time.Second

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastJSON writes v to every connected client, dropping any whose
// write fails or stalls past the deadline.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

// Publish implements scrape.ProgressSink.
func (h *Hub) Publish(snapshot scrape.Snapshot) {
	h.BroadcastJSON(snapshot)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// progress snapshots carry nothing sensitive
		return true
	},
}

// Handler upgrades an HTTP request and keeps the connection registered
// until the client goes away. Incoming messages are ignored.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Add(ws)
		slog.Debug("progress subscriber connected", "clients", h.Count())

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.Remove(ws)
		slog.Debug("progress subscriber disconnected", "clients", h.Count())
	}
}
