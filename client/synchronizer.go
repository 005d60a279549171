// Package client is the headless synchronizer for the forest scene: it dials
// the session server, predicts the local player's motion from raw input, and
// reconciles everyone else from the server's event stream. A rendering layer
// embeds it and reads positions and overlays each frame.
package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config describes one connection to the session server.
type Config struct {
	// URL is the WebSocket endpoint, e.g. ws://localhost:3000/ws.
	URL string
	// Token is the bearer credential minted by the surrounding web app.
	Token string
	// Username is the display name sent with the join; the server picks a
	// fallback when empty.
	Username string
	// Logger is optional; nil logs nothing.
	Logger *zap.SugaredLogger

	// Optional event callbacks, invoked from the read loop with no internal
	// lock held, so they may call back into the Synchronizer freely.
	OnChat  func(ChatMessage)
	OnEmote func(playerID, glyph string)
	OnError func(message string)
}

// Player is the synchronizer's view of one player in the room.
type Player struct {
	ID       string
	Username string
	Avatar   string
	X, Y     float64
}

// ChatMessage is a received room chat line.
type ChatMessage struct {
	ID       string
	Username string
	Message  string
}

// serverEvent is the inbound envelope; one flat shape covers every event
// type the server emits.
type serverEvent struct {
	Type     string                `json:"type"`
	ID       string                `json:"id"`
	X        float64               `json:"x"`
	Y        float64               `json:"y"`
	Username string                `json:"username"`
	Avatar   string                `json:"avatar"`
	Room     string                `json:"room"`
	Message  string                `json:"message"`
	Emote    string                `json:"emote"`
	Players  map[string]wirePlayer `json:"players"`
}

type wirePlayer struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Room     string  `json:"room"`
}

type joinMsg struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
}

type moveMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type chatMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type emoteMsg struct {
	Type  string `json:"type"`
	Emote string `json:"emote"`
}

// Synchronizer reconciles locally predicted motion with server-confirmed
// state. The local player and the remote players are two disjoint paths: the
// local position is advanced only by input and is never overwritten by
// inbound data about its own id, while remote positions are applied verbatim.
type Synchronizer struct {
	log  *zap.SugaredLogger
	conn *websocket.Conn

	writeMu sync.Mutex

	mu          sync.Mutex
	id          string
	seeded      bool
	local       Player
	remotes     map[string]*Player
	keys        *KeyState
	chatFocused bool
	overlays    *OverlayManager
	restZone    CircleZone

	ready chan struct{}
	done  chan struct{}

	// Callbacks from Config, fixed before the read loop starts.
	onChat  func(ChatMessage)
	onEmote func(playerID, glyph string)
	onError func(message string)
}

// Dial connects to the session server and sends the join handshake. The
// returned Synchronizer is live; wait for WaitReady before reading state.
func Dial(cfg Config) (*Synchronizer, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(cfg.URL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}

	s := &Synchronizer{
		log:      log,
		conn:     conn,
		remotes:  make(map[string]*Player),
		keys:     NewKeyState(),
		overlays: NewOverlayManager(),
		restZone: CircleZone{X: RestZoneX, Y: RestZoneY, R: RestZoneR},
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		onChat:   cfg.OnChat,
		onEmote:  cfg.OnEmote,
		onError:  cfg.OnError,
	}

	go s.readLoop()

	if err := s.write(joinMsg{Type: "join", Username: cfg.Username}); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// WaitReady blocks until the server has seeded this client with the room
// snapshot, or the timeout elapses, or the connection drops.
func (s *Synchronizer) WaitReady(timeout time.Duration) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return errors.New("connection closed before snapshot")
	case <-time.After(timeout):
		return errors.New("timed out waiting for snapshot")
	}
}

// Close tears the connection down.
func (s *Synchronizer) Close() {
	_ = s.conn.Close()
}

// Done is closed when the read loop exits.
func (s *Synchronizer) Done() <-chan struct{} { return s.done }

func (s *Synchronizer) write(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Synchronizer) readLoop() {
	defer close(s.done)
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev serverEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			s.log.Debugw("bad frame", "err", err)
			continue
		}
		s.apply(&ev)
	}
}

// apply dispatches one inbound event. Snapshot and movement data about the
// local id is dropped on the floor here; only input moves the local player.
// Callbacks are collected under the lock and invoked after it is released,
// so they can query the Synchronizer without deadlocking the read loop.
func (s *Synchronizer) apply(ev *serverEvent) {
	var notify func()

	s.mu.Lock()
	switch ev.Type {
	case "state":
		s.id = ev.ID
		for id, p := range ev.Players {
			if id == s.id {
				// Seed the spawn once; after this the server never touches
				// the predicted position again.
				if !s.seeded {
					s.local = Player{ID: p.ID, Username: p.Username, Avatar: p.Avatar, X: p.X, Y: p.Y}
					s.seeded = true
					close(s.ready)
				}
				continue
			}
			s.remotes[id] = &Player{ID: p.ID, Username: p.Username, Avatar: p.Avatar, X: p.X, Y: p.Y}
		}
	case "playerJoined":
		if ev.ID != s.id {
			s.remotes[ev.ID] = &Player{ID: ev.ID, Username: ev.Username, Avatar: ev.Avatar, X: ev.X, Y: ev.Y}
		}
	case "playerMoved":
		if p, ok := s.remotes[ev.ID]; ok {
			p.X, p.Y = ev.X, ev.Y
		}
	case "playerLeft":
		delete(s.remotes, ev.ID)
	case "chatMessage":
		if s.tracked(ev.ID) {
			s.overlays.ShowBubble(ev.ID, ev.Message)
		}
		if s.onChat != nil {
			msg := ChatMessage{ID: ev.ID, Username: ev.Username, Message: ev.Message}
			notify = func() { s.onChat(msg) }
		}
	case "playerEmote":
		if s.tracked(ev.ID) {
			s.overlays.ShowEmote(ev.ID, ev.Emote)
		}
		if s.onEmote != nil {
			id, glyph := ev.ID, ev.Emote
			notify = func() { s.onEmote(id, glyph) }
		}
	case "error":
		s.log.Warnw("server error", "message", ev.Message)
		if s.onError != nil {
			msg := ev.Message
			notify = func() { s.onError(msg) }
		}
	default:
		s.log.Debugw("unknown event", "type", ev.Type)
	}
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (s *Synchronizer) tracked(playerID string) bool {
	if playerID == s.id {
		return true
	}
	_, ok := s.remotes[playerID]
	return ok
}

func (s *Synchronizer) position(playerID string) (float64, float64, bool) {
	if playerID == s.id {
		return s.local.X, s.local.Y, true
	}
	if p, ok := s.remotes[playerID]; ok {
		return p.X, p.Y, true
	}
	return 0, 0, false
}

// SetKey records a movement key press or release.
func (s *Synchronizer) SetKey(key Key, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys.Set(key, pressed)
}

// SetChatFocus suppresses all movement input while the user is typing, so
// the chat box and the scene never fight over the keyboard.
func (s *Synchronizer) SetChatFocus(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatFocused = focused
}

// Tick advances one frame: predict the local position from held keys, notify
// the server only when it actually changed, run rest-zone edge detection,
// and age the overlays. Call it at the render rate.
func (s *Synchronizer) Tick() error {
	s.mu.Lock()
	var moved bool
	if s.seeded && !s.chatFocused {
		nx, ny := Step(s.local.X, s.local.Y, s.keys)
		if nx != s.local.X || ny != s.local.Y {
			s.local.X, s.local.Y = nx, ny
			moved = true
		}
	}
	x, y := s.local.X, s.local.Y
	entered := s.seeded && s.restZone.Update(x, y)
	s.overlays.Update(s.position)
	s.mu.Unlock()

	if moved {
		if err := s.write(moveMsg{Type: "move", X: x, Y: y}); err != nil {
			return err
		}
	}
	if entered {
		if err := s.write(emoteMsg{Type: "emote", Emote: RestEmote}); err != nil {
			return err
		}
	}
	return nil
}

// SendChat submits a chat line. The local bubble appears when the broadcast
// comes back around; there is no local echo.
func (s *Synchronizer) SendChat(text string) error {
	return s.write(chatMsg{Type: "chat", Message: text})
}

// SendEmote submits an emote glyph.
func (s *Synchronizer) SendEmote(glyph string) error {
	return s.write(emoteMsg{Type: "emote", Emote: glyph})
}

// ID returns the server-assigned connection id, empty before the snapshot.
func (s *Synchronizer) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Local returns the predicted local player.
func (s *Synchronizer) Local() Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Remotes returns a copy of the tracked remote players.
func (s *Synchronizer) Remotes() map[string]Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Player, len(s.remotes))
	for id, p := range s.remotes {
		out[id] = *p
	}
	return out
}

// BubbleFor returns the live bubble for a player, if any.
func (s *Synchronizer) BubbleFor(playerID string) (Bubble, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.overlays.Bubble(playerID); ok {
		return *b, true
	}
	return Bubble{}, false
}

// EmoteOverlayFor returns the live emote overlay for a player, if any.
func (s *Synchronizer) EmoteOverlayFor(playerID string) (Emote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.overlays.EmoteFor(playerID); ok {
		return *e, true
	}
	return Emote{}, false
}
