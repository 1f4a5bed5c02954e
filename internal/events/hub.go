package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one JSON frame pushed to connected UI clients.
type Event struct {
	Type    string      `json:"type"` // "chat_updated" | "chat_deleted"
	Payload interface{} `json:"payload"`
}

type chatEvent struct {
	ChatID uuid.UUID `json:"chat_id"`
}

// Hub pushes chat-change events to websocket clients so the chat list can
// refresh without polling. Single-process: connections are held in memory.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) ChatUpdated(chatID uuid.UUID) {
	h.broadcast(Event{Type: "chat_updated", Payload: chatEvent{ChatID: chatID}})
}

func (h *Hub) ChatDeleted(chatID uuid.UUID) {
	h.broadcast(Event{Type: "chat_deleted", Payload: chatEvent{ChatID: chatID}})
}

func (h *Hub) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(conn)
		}
	}
}
