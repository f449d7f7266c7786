package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastToRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appID := uint(1)
		if r.URL.Query().Get("appId") == "2" {
			appID = 2
		}
		assert.NoError(t, hub.Serve(w, r, appID, 7))
	}))
	defer srv.Close()

	one := dial(t, srv, "appId=1")
	two := dial(t, srv, "appId=2")
	require.Eventually(t, func() bool {
		return hub.Subscribers(1) == 1 && hub.Subscribers(2) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(1, Event{Type: EventCanvasUpdated, UserID: 7, Data: map[string]any{"width": 800}})

	var got Event
	require.NoError(t, one.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, one.ReadJSON(&got))
	assert.Equal(t, EventCanvasUpdated, got.Type)
	assert.Equal(t, uint(1), got.AppID)
	assert.False(t, got.Timestamp.IsZero())

	require.NoError(t, two.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := two.ReadMessage()
	assert.Error(t, err, "app 2 must not receive app 1 events")
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, 5, 1)
	}))
	defer srv.Close()

	conn := dial(t, srv, "appId=5")
	require.Eventually(t, func() bool { return hub.Subscribers(5) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers(5) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(zerolog.Nop(), WithSendBuffer(1))
	c := &client{room: Room(3), send: make(chan []byte, 1)}
	hub.register(c)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(3, Event{Type: EventElementUpdated})
		hub.Broadcast(3, Event{Type: EventElementDeleted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}
	assert.Len(t, c.send, 1)
	assert.Contains(t, string(<-c.send), EventElementUpdated)

	hub.unregister(c)
	_, open := <-c.send
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers(3))
}

func TestRecorderAndNop(t *testing.T) {
	var b Broadcaster = Nop{}
	b.Broadcast(1, Event{Type: EventWorkflowSaved})

	rec := &Recorder{}
	b = rec
	b.Broadcast(4, Event{Type: EventElementsGrouped})
	b.Broadcast(4, Event{Type: EventElementsUngrouped})
	assert.Equal(t, []string{EventElementsGrouped, EventElementsUngrouped}, rec.Types())
	assert.Equal(t, uint(4), rec.Events()[0].AppID)
	assert.Equal(t, "app:4", Room(4))
}
