package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/studentinfo/internal/model"
)

// dialHub upgrades a test connection and registers the server side with the hub.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	client := dialHub(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	sent := Event{
		StudentID:   uuid.New(),
		StudentCode: "S100",
		FullName:    "Asha Rahman",
		Class:       "10",
		Section:     "A",
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:      model.StatusPresent,
		MarkedBy:    uuid.New(),
	}
	hub.Broadcast(sent)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, sent.StudentID, got.StudentID)
	assert.Equal(t, "S100", got.StudentCode)
	assert.Equal(t, model.StatusPresent, got.Status)
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := NewHub()
	client := dialHub(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	client.Close()
	// The first write after close may still land in the OS buffer, so
	// broadcast until the hub notices the dead peer.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.Broadcast(Event{StudentCode: "S100"})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestNilHubBroadcast(t *testing.T) {
	var hub *Hub
	hub.Broadcast(Event{StudentCode: "S100"})
}
