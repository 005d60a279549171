package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// testEvent is a flat decode target covering every outbound event type.
type testEvent struct {
	Type     string                `json:"type"`
	ID       string                `json:"id"`
	X        float64               `json:"x"`
	Y        float64               `json:"y"`
	Username string                `json:"username"`
	Avatar   string                `json:"avatar"`
	Room     string                `json:"room"`
	Message  string                `json:"message"`
	Emote    string                `json:"emote"`
	Players  map[string]PlayerView `json:"players"`
}

func startGateway(t *testing.T, cfg Config) (*Gateway, string) {
	t.Helper()
	table := NewRoomTable()
	gw := NewGateway(cfg, table)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)
	return gw, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) testEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev testEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("decode %q: %v", payload, err)
	}
	return ev
}

// joinAs completes the join handshake and returns the assigned player id.
func joinAs(t *testing.T, conn *websocket.Conn, username string) string {
	t.Helper()
	send(t, conn, map[string]any{"type": "join", "username": username})
	ev := readEvent(t, conn)
	if ev.Type != "state" {
		t.Fatalf("first event %q, want state", ev.Type)
	}
	if ev.ID == "" {
		t.Fatal("state event carries no connection id")
	}
	if _, ok := ev.Players[ev.ID]; !ok {
		t.Fatal("snapshot does not contain the joining player")
	}
	return ev.ID
}

func TestJoinHandshake(t *testing.T) {
	gw, url := startGateway(t, Config{})

	a := dial(t, url, "token-a")
	idA := joinAs(t, a, "ana")

	b := dial(t, url, "token-b")
	send(t, b, map[string]any{"type": "join", "username": "bruno"})
	ev := readEvent(t, b)
	if ev.Type != "state" {
		t.Fatalf("first event %q, want state", ev.Type)
	}
	if len(ev.Players) != 2 {
		t.Fatalf("snapshot has %d players, want 2", len(ev.Players))
	}
	if got := ev.Players[idA]; got.Username != "ana" || got.Avatar != DefaultAvatar || got.Room != DefaultRoom {
		t.Fatalf("peer view %+v in snapshot", got)
	}

	// The earlier joiner hears about the newcomer, once.
	joined := readEvent(t, a)
	if joined.Type != "playerJoined" {
		t.Fatalf("peer got %q, want playerJoined", joined.Type)
	}
	if joined.Username != "bruno" || joined.X != SpawnX || joined.Y != SpawnY {
		t.Fatalf("playerJoined payload %+v", joined)
	}

	if got := gw.Table().Len(DefaultRoom); got != 2 {
		t.Fatalf("room has %d members, want 2", got)
	}
}

func TestJoinFallbackUsername(t *testing.T) {
	_, url := startGateway(t, Config{})

	conn := dial(t, url, "token")
	send(t, conn, map[string]any{"type": "join"})
	ev := readEvent(t, conn)
	if ev.Type != "state" {
		t.Fatalf("first event %q, want state", ev.Type)
	}
	self := ev.Players[ev.ID]
	if !strings.HasPrefix(self.Username, "User-") {
		t.Fatalf("fallback username %q, want User- prefix", self.Username)
	}
}

// TestRoomScenario walks the reference sequence: A and B join, A moves, B
// chats, A disconnects.
func TestRoomScenario(t *testing.T) {
	gw, url := startGateway(t, Config{})

	a := dial(t, url, "token-a")
	idA := joinAs(t, a, "ana")
	b := dial(t, url, "token-b")
	idB := joinAs(t, b, "bruno")
	readEvent(t, a) // playerJoined for B

	// A moves: B hears it, A does not.
	send(t, a, map[string]any{"type": "move", "x": 10, "y": 20})
	moved := readEvent(t, b)
	if moved.Type != "playerMoved" || moved.ID != idA || moved.X != 10 || moved.Y != 20 {
		t.Fatalf("B got %+v, want playerMoved id=%s (10,20)", moved, idA)
	}

	// B chats: everyone hears it, sender included. A's next event being the
	// chat line also proves the move above was never echoed back to A.
	send(t, b, map[string]any{"type": "chat", "message": "hi"})
	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		chat := readEvent(t, conn)
		if chat.Type != "chatMessage" || chat.ID != idB || chat.Username != "bruno" || chat.Message != "hi" {
			t.Fatalf("%s got %+v, want chatMessage from bruno", name, chat)
		}
	}

	// A disconnects: B hears playerLeft and the room shrinks.
	_ = a.Close()
	left := readEvent(t, b)
	if left.Type != "playerLeft" || left.ID != idA {
		t.Fatalf("B got %+v, want playerLeft id=%s", left, idA)
	}

	deadline := time.Now().Add(2 * time.Second)
	for gw.Table().Len(DefaultRoom) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("room has %d members after disconnect, want 1", gw.Table().Len(DefaultRoom))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMoveNeverEchoedToSender(t *testing.T) {
	_, url := startGateway(t, Config{})

	a := dial(t, url, "token-a")
	joinAs(t, a, "ana")
	b := dial(t, url, "token-b")
	joinAs(t, b, "bruno")
	readEvent(t, a) // playerJoined for B

	send(t, a, map[string]any{"type": "move", "x": 5, "y": 6})
	readEvent(t, b) // B hears it

	_ = a.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, payload, err := a.ReadMessage(); err == nil {
		t.Fatalf("A received %q, want nothing", payload)
	}
}

func TestEmoteBroadcastIncludesSender(t *testing.T) {
	_, url := startGateway(t, Config{})

	a := dial(t, url, "token-a")
	idA := joinAs(t, a, "ana")
	b := dial(t, url, "token-b")
	joinAs(t, b, "bruno")
	readEvent(t, a) // playerJoined for B

	send(t, a, map[string]any{"type": "emote", "emote": "💃"})
	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		ev := readEvent(t, conn)
		if ev.Type != "playerEmote" || ev.ID != idA || ev.Emote != "💃" {
			t.Fatalf("%s got %+v, want playerEmote 💃 from %s", name, ev, idA)
		}
	}
}

func TestChatBareStringPayload(t *testing.T) {
	_, url := startGateway(t, Config{})

	conn := dial(t, url, "token")
	joinAs(t, conn, "ana")

	// The historical wire shape sends the chat text as a bare string.
	send(t, conn, json.RawMessage(`{"type":"chat","message":"hola"}`))
	ev := readEvent(t, conn)
	if ev.Type != "chatMessage" || ev.Message != "hola" {
		t.Fatalf("got %+v, want chatMessage hola", ev)
	}
}

func TestJoinRejectedWhenRoomFull(t *testing.T) {
	gw, url := startGateway(t, Config{})

	for i := 0; i < RoomCapacity; i++ {
		gw.Table().AddPlayer(DefaultRoom, NewPlayer(fmt.Sprintf("p%02d", i), "filler", DefaultRoom))
	}

	conn := dial(t, url, "token")
	send(t, conn, map[string]any{"type": "join", "username": "late"})
	ev := readEvent(t, conn)
	if ev.Type != "error" || ev.Message != "Room full" {
		t.Fatalf("got %+v, want error Room full", ev)
	}

	// The server closes the connection after the error.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection still open after capacity rejection")
	}
	if got := gw.Table().Len(DefaultRoom); got != RoomCapacity {
		t.Fatalf("room has %d members, want %d untouched", got, RoomCapacity)
	}
}

func TestDuplicateJoinIgnored(t *testing.T) {
	gw, url := startGateway(t, Config{})

	conn := dial(t, url, "token")
	joinAs(t, conn, "ana")
	send(t, conn, map[string]any{"type": "join", "username": "ana-again"})

	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("duplicate join produced %q, want nothing", payload)
	}
	if got := gw.Table().Len(DefaultRoom); got != 1 {
		t.Fatalf("room has %d members after duplicate join, want 1", got)
	}
}

func TestEventsBeforeJoinAreDropped(t *testing.T) {
	gw, url := startGateway(t, Config{})

	conn := dial(t, url, "token")
	send(t, conn, map[string]any{"type": "move", "x": 1, "y": 2})
	send(t, conn, map[string]any{"type": "chat", "message": "anyone?"})

	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("pre-join event produced %q, want nothing", payload)
	}
	if got := gw.Metrics().Snapshot()["stale_dropped"]; got != 2 {
		t.Fatalf("stale_dropped = %d, want 2", got)
	}
}

func TestHandshakeRequiresCredential(t *testing.T) {
	_, url := startGateway(t, Config{})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without credential succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response %v, want 401", resp)
	}
}

func TestHandshakeVerifiesJWTWhenConfigured(t *testing.T) {
	secret := "test-secret"
	_, url := startGateway(t, Config{JWTSecret: secret})

	// Garbage token is refused.
	header := http.Header{}
	header.Set("Authorization", "Bearer not-a-jwt")
	if _, resp, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("dial with garbage token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response %v, want 401", resp)
	}

	// A properly signed token passes.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	conn := dial(t, url, signed)
	joinAs(t, conn, "ana")
}

func TestBearerTokenSources(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc")
	if got := bearerToken(r); got != "abc" {
		t.Fatalf("header token %q, want abc", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	if got := bearerToken(r); got != "xyz" {
		t.Fatalf("query token %q, want xyz", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := bearerToken(r); got != "" {
		t.Fatalf("token %q on bare request, want empty", got)
	}
}
