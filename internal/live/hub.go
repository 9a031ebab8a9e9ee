// Package live pushes marked-attendance events to connected dashboard
// clients over websockets.
package live

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sekolahku/studentinfo/internal/model"
)

// Event is one marked-attendance notification.
type Event struct {
	StudentID   uuid.UUID              `json:"studentId"`
	StudentCode string                 `json:"studentCode"`
	FullName    string                 `json:"fullName"`
	Class       string                 `json:"class"`
	Section     string                 `json:"section"`
	Date        time.Time              `json:"date"`
	Status      model.AttendanceStatus `json:"status"`
	MarkedBy    uuid.UUID              `json:"markedBy"`
	Updated     bool                   `json:"updated"`
}

// Hub fans out events to every connected client. Slow or dead connections
// are dropped on write failure rather than blocking the sender.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends the event to all clients. Safe to call from request
// handlers; a nil hub is a no-op so services can run without a live feed.
func (h *Hub) Broadcast(evt Event) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(evt); err != nil {
			log.Printf("live: dropping client: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
