package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, serverURL, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	return msg
}

// sessionStatus decodes the session status of a snapshot message.
func sessionStatus(t *testing.T, msg wsMessage) domain.SessionStatus {
	t.Helper()
	var snap store.Snapshot
	if err := json.Unmarshal(msg.Payload, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	var s domain.Session
	if err := json.Unmarshal(snap.Data, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s.Status
}

func TestWebSocketFeedAndActions(t *testing.T) {
	server := createSession(t)
	conn := dial(t, server.URL, "sessionId=s1&path=sessions/s1")

	if got := sessionStatus(t, readNext(conn, t, "snapshot")); got != domain.StatusNotStarted {
		t.Fatalf("expected not_started first, got %s", got)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "action",
		"payload": map[string]any{"action": "startGame", "actorId": "host"},
	}); err != nil {
		t.Fatalf("write action: %v", err)
	}

	// The ack and the new snapshot race; accept either order.
	acked, started := false, false
	for i := 0; i < 4 && !(acked && started); i++ {
		msg := readNext(conn, t, "")
		switch msg.Type {
		case "ack":
			acked = true
		case "snapshot":
			started = sessionStatus(t, msg) == domain.StatusGameHome
		}
	}
	if !acked || !started {
		t.Fatalf("expected ack and game_home snapshot, got ack=%v started=%v", acked, started)
	}
}

func TestWebSocketReportsRejections(t *testing.T) {
	server := createSession(t)
	conn := dial(t, server.URL, "sessionId=s1&path=sessions/s1/realtime/timer")
	readNext(conn, t, "snapshot")

	if err := conn.WriteJSON(map[string]any{
		"type":    "action",
		"payload": map[string]any{"action": "startGame", "actorId": "p1"},
	}); err != nil {
		t.Fatalf("write action: %v", err)
	}
	msg := readNext(conn, t, "error")
	var payload wsError
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != domain.RejectForbidden || payload.Status != http.StatusForbidden {
		t.Fatalf("unexpected error payload %+v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = readNext(conn, t, "error")
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unsupported message, got %+v", payload)
	}
}

func TestWebSocketRejectsForeignPath(t *testing.T) {
	server := createSession(t)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?sessionId=s1&path=sessions/s2"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}
