package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

func dialTestHub(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(s.buildRouter())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func subscribe(t *testing.T, conn *websocket.Conn, channels ...string) {
	t.Helper()

	msg := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: channels},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var resp WSMessage
	//nolint:errcheck // Test deadline; read error surfaces below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse {
		t.Fatalf("subscribe response type = %q, want %q", resp.Type, WSTypeResponse)
	}
}

func TestWebSocketReceivesSubscribedEvents(t *testing.T) {
	s := newTestServer(newFakeController("court-1"), &fakeHistory{})
	conn, cleanup := dialTestHub(t, s)
	defer cleanup()

	subscribe(t, conn, "disconnected")

	s.hub.BroadcastEvent(supervisor.Event{
		ID:        "evt-1",
		Court:     "court-1",
		Type:      supervisor.EventDisconnected,
		Timestamp: time.Now(),
		Detail:    "probe failed",
	})

	var msg WSMessage
	//nolint:errcheck // Test deadline; read error surfaces below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != WSTypeEvent || msg.EventType != "disconnected" {
		t.Errorf("message = %+v, want disconnected event", msg)
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("re-marshal payload: %v", err)
	}
	var ev supervisor.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("unmarshal event payload: %v", err)
	}
	if ev.Court != "court-1" || ev.Detail != "probe failed" {
		t.Errorf("event payload = %+v", ev)
	}
}

func TestWebSocketWildcardSubscription(t *testing.T) {
	s := newTestServer(newFakeController("court-1"), &fakeHistory{})
	conn, cleanup := dialTestHub(t, s)
	defer cleanup()

	subscribe(t, conn, "*")

	s.hub.BroadcastEvent(supervisor.Event{
		ID:        "evt-2",
		Court:     "court-1",
		Type:      supervisor.EventStreamStarted,
		Timestamp: time.Now(),
	})

	var msg WSMessage
	//nolint:errcheck // Test deadline; read error surfaces below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.EventType != "stream_started" {
		t.Errorf("event type = %q, want stream_started", msg.EventType)
	}
}

func TestWebSocketUnsubscribedClientGetsNothing(t *testing.T) {
	s := newTestServer(newFakeController("court-1"), &fakeHistory{})
	conn, cleanup := dialTestHub(t, s)
	defer cleanup()

	// No subscription at all; events must not arrive.
	s.hub.BroadcastEvent(supervisor.Event{
		ID:    "evt-3",
		Court: "court-1",
		Type:  supervisor.EventConnected,
	})

	//nolint:errcheck // Short deadline is the point of this test
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("received %+v without subscribing", msg)
	}
}

func TestWebSocketPingPong(t *testing.T) {
	s := newTestServer(newFakeController("court-1"), &fakeHistory{})
	conn, cleanup := dialTestHub(t, s)
	defer cleanup()

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	var resp WSMessage
	//nolint:errcheck // Test deadline; read error surfaces below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if resp.Type != WSTypePong || resp.ID != "p-1" {
		t.Errorf("response = %+v, want pong with id p-1", resp)
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger{})
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call must not panic on closed channel
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}
