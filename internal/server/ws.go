package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// HorizonHandler broadcasts tracked horizon lines via WebSocket.
type HorizonHandler struct {
	hub     *Hub
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHorizonHandler creates a new HorizonHandler reading from the given hub.
func NewHorizonHandler(hub *Hub) *HorizonHandler {
	h := &HorizonHandler{
		hub:     hub,
		clients: make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *HorizonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends horizon line data to all connected clients.
func (h *HorizonHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	var last uint64
	for range ticker.C {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		res, seq := h.hub.Latest()
		if seq == last {
			continue
		}
		last = seq

		msg, _ := json.Marshal(map[string]any{
			"frame_index": res.FrameIndex,
			"line":        res.Line,
			"origin":      res.Origin.String(),
			"timestamp":   time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
