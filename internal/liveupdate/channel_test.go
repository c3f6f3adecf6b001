package liveupdate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
)

// wsServer is a minimal backend stand-in that records control frames
// and lets tests push update events to the connected client.
type wsServer struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []frame
}

func newWSServer(t *testing.T) (*wsServer, *Channel) {
	t.Helper()

	ws := &wsServer{}
	server := httptest.NewServer(http.HandlerFunc(ws.handle))
	t.Cleanup(server.Close)

	channel := New(Config{
		URL:               "ws" + strings.TrimPrefix(server.URL, "http"),
		HeartbeatInterval: 100 * time.Millisecond,
		ReconnectDelay:    50 * time.Millisecond,
	}, logger.New())
	t.Cleanup(channel.Disconnect)

	return ws, channel
}

func (ws *wsServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.mu.Lock()
	ws.conns = append(ws.conns, conn)
	ws.mu.Unlock()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if json.Unmarshal(message, &f) == nil {
			ws.mu.Lock()
			ws.frames = append(ws.frames, f)
			ws.mu.Unlock()
		}
	}
}

func (ws *wsServer) recordedFrames() []frame {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]frame, len(ws.frames))
	copy(out, ws.frames)
	return out
}

func (ws *wsServer) connectionCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.conns)
}

func (ws *wsServer) push(t *testing.T, destination string, event models.UpdateEvent) {
	t.Helper()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.NotEmpty(t, ws.conns, "no client connected")
	conn := ws.conns[len(ws.conns)-1]
	require.NoError(t, conn.WriteJSON(push{Destination: destination, Body: event}))
}

func (ws *wsServer) pushRaw(t *testing.T, payload string) {
	t.Helper()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.NotEmpty(t, ws.conns, "no client connected")
	conn := ws.conns[len(ws.conns)-1]
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (ws *wsServer) dropClients() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, conn := range ws.conns {
		conn.Close()
	}
	ws.conns = nil
}

func TestWatch_ReceivesMatchingEvents(t *testing.T) {
	server, channel := newWSServer(t)

	sub := channel.Watch(DashboardDestination("abc123"))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return len(server.recordedFrames()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	frames := server.recordedFrames()
	assert.Equal(t, "subscribe", frames[0].Action)
	assert.Equal(t, "/user/abc123/queue/live", frames[0].Destination)

	server.push(t, "/user/abc123/queue/live", models.UpdateEvent{Type: models.EventRefreshDashboard})

	select {
	case event := <-sub.Events():
		assert.Equal(t, models.EventRefreshDashboard, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatch_IgnoresOtherDestinations(t *testing.T) {
	server, channel := newWSServer(t)

	sub := channel.Watch(DashboardDestination("abc123"))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return channel.Connected()
	}, 2*time.Second, 10*time.Millisecond)

	server.push(t, "/user/other/queue/live", models.UpdateEvent{Type: models.EventDisconnect})
	server.push(t, "/user/abc123/queue/live", models.UpdateEvent{Type: models.EventRefreshWidget})

	select {
	case event := <-sub.Events():
		assert.Equal(t, models.EventRefreshWidget, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	assert.Empty(t, sub.Events())
}

func TestReconnect_ReannouncesSubscriptions(t *testing.T) {
	server, channel := newWSServer(t)

	channel.Watch(ScreenDestination("abc123", 654321))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return len(server.recordedFrames()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	server.dropClients()

	require.Eventually(t, func() bool {
		return len(server.recordedFrames()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	frames := server.recordedFrames()
	assert.Equal(t, frames[0], frames[1])
	assert.Equal(t, "/user/abc123-654321/queue/unique", frames[1].Destination)
}

func TestUnsubscribe_SendsFrameAndClosesStream(t *testing.T) {
	server, channel := newWSServer(t)

	sub := channel.Watch(ConnectDestination(123456))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return len(server.recordedFrames()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	require.Eventually(t, func() bool {
		return len(server.recordedFrames()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	frames := server.recordedFrames()
	assert.Equal(t, "unsubscribe", frames[1].Action)
	assert.Equal(t, "/user/123456/queue/connect", frames[1].Destination)

	_, open := <-sub.Events()
	assert.False(t, open, "events channel should be closed")
}

func TestMalformedEvent_DroppedWithoutKillingStream(t *testing.T) {
	server, channel := newWSServer(t)

	sub := channel.Watch(WidgetDestination("abc123", 42))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return channel.Connected()
	}, 2*time.Second, 10*time.Millisecond)

	server.pushRaw(t, "{not json")
	server.push(t, "/user/abc123-projectWidget-42/queue/live",
		models.UpdateEvent{Type: models.EventRefreshWidget})

	select {
	case event := <-sub.Events():
		assert.Equal(t, models.EventRefreshWidget, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("stream died on malformed event")
	}

	// Connection survived the junk as well
	assert.Equal(t, 1, server.connectionCount())
}

func TestDisconnect_SafeWhenNeverConnected(t *testing.T) {
	channel := New(Config{
		URL:               "ws://127.0.0.1:1/ws",
		HeartbeatInterval: 100 * time.Millisecond,
		ReconnectDelay:    50 * time.Millisecond,
	}, logger.New())

	channel.Disconnect()
	channel.Disconnect()
	assert.False(t, channel.Connected())
}

func TestDisconnect_ClosesSubscriptionsAndAllowsRestart(t *testing.T) {
	server, channel := newWSServer(t)

	sub := channel.Watch(DashboardDestination("abc123"))
	channel.StartConnection()

	require.Eventually(t, func() bool {
		return channel.Connected()
	}, 2*time.Second, 10*time.Millisecond)

	channel.Disconnect()

	_, open := <-sub.Events()
	assert.False(t, open, "events channel should be closed")
	assert.False(t, channel.Connected())

	channel.StartConnection()
	channel.Watch(DashboardDestination("abc123"))

	require.Eventually(t, func() bool {
		return channel.Connected()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, server.connectionCount())
}

func TestDestinationTemplates(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"dashboard", DashboardDestination("tok"), "/user/tok/queue/live"},
		{"screen", ScreenDestination("tok", 100001), "/user/tok-100001/queue/unique"},
		{"connect", ConnectDestination(999999), "/user/999999/queue/connect"},
		{"widget", WidgetDestination("tok", 7), "/user/tok-projectWidget-7/queue/live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
