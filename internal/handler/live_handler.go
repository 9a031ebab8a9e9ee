package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sekolahku/studentinfo/internal/live"
)

type LiveHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
}

func NewLiveHandler(hub *live.Hub) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS policy is enforced on the REST surface
			},
		},
	}
}

// AttendanceFeed upgrades the connection and streams marked-attendance
// events until the client goes away. Auth runs in middleware (token query
// param supported there for websocket clients).
func (h *LiveHandler) AttendanceFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("live: upgrade failed: %v", err)
		return
	}

	h.hub.Register(conn)
	defer h.hub.Unregister(conn)

	// Drain control frames; exit on client close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
