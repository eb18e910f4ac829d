package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// newTestServer 每个连接按 sessionFor 返回的会话注册，hold 后注销
func newTestServer(t *testing.T, hub *Hub, sessionFor func() string, hold time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{SessionID: sessionFor(), Conn: conn}
		hub.Register(client)
		time.Sleep(hold)
		hub.Unregister(client)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsSubscribed("missing"))
}

func TestHub_SendToSession_NoSubscribers(t *testing.T) {
	hub := NewHub()

	err := hub.SendToSession("rfp_opt_x", &Message{Type: "job_progress", Data: map[string]int{"progress": 20}})
	assert.NoError(t, err)
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, func() string { return "session-a" }, 150*time.Millisecond)

	dial(t, server)

	require.Eventually(t, func() bool { return hub.IsSubscribed("session-a") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ConnectionCount())

	require.Eventually(t, func() bool { return !hub.IsSubscribed("session-a") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_SendToSession_WithConnection(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, func() string { return "session-b" }, 500*time.Millisecond)

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.IsSubscribed("session-b") }, time.Second, 10*time.Millisecond)

	err := hub.SendToSession("session-b", &Message{
		Type: "job_progress",
		Data: map[string]string{"step": "analyzing"},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, received, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(received), "job_progress")
	assert.Contains(t, string(received), "analyzing")
}

func TestHub_MultipleConnectionsPerSession(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, func() string { return "shared" }, 300*time.Millisecond)

	dial(t, server)
	dial(t, server)

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsSubscribed("shared"))
}

func TestHub_SessionsAreIsolated(t *testing.T) {
	hub := NewHub()
	var n int32
	server := newTestServer(t, hub, func() string {
		return fmt.Sprintf("session-%d", atomic.AddInt32(&n, 1))
	}, 300*time.Millisecond)

	for i := 0; i < 3; i++ {
		dial(t, server)
	}

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsSubscribed("session-1"))
	assert.True(t, hub.IsSubscribed("session-3"))
	assert.False(t, hub.IsSubscribed("session-4"))
}
