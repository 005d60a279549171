// Package server implements the realtime session layer of the forest scene:
// a WebSocket gateway that tracks players in shared rooms and fans their
// movement, chat, and emotes out to the right audience. The surrounding web
// application authenticates users and hands over a bearer token; everything
// past that token lives here.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Gateway owns the registry of live sessions grouped by room and the shared
// RoomTable. The registry is mutated only by a session's own join/disconnect
// and read by broadcast fan-out.
type Gateway struct {
	cfg      Config
	table    *RoomTable
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

func NewGateway(cfg Config, table *RoomTable) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		table:   table,
		metrics: &Metrics{},
		rooms:   make(map[string]map[*Session]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return g.cfg.originAllowed(r.Header.Get("Origin"))
		},
	}
	return g
}

// Metrics exposes the gateway counters.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// Table exposes the room table, mainly for the admin endpoint.
func (g *Gateway) Table() *RoomTable { return g.table }

func (g *Gateway) register(roomID string, s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	if !ok {
		room = make(map[*Session]struct{})
		g.rooms[roomID] = room
	}
	room[s] = struct{}{}
}

func (g *Gateway) unregister(roomID string, s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	if !ok {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(g.rooms, roomID)
	}
}

// broadcast fans a frame out to every session in the room, minus skip when
// the sender must not hear its own event. Fire-and-forget: nobody waits for
// delivery.
func (g *Gateway) broadcast(roomID string, payload []byte, skip *Session) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for s := range g.rooms[roomID] {
		if s == skip {
			continue
		}
		s.conn.Enqueue(payload)
	}
}

// Session manages the lifecycle of exactly one client connection. Its state
// machine is Connected -> Joined -> Closed; player is nil until the join
// handshake succeeds and is only ever touched from the read loop.
type Session struct {
	id   string
	gw   *Gateway
	conn *ClientConn

	player    *Player
	closeOnce sync.Once
}

func newSession(g *Gateway, ws *websocket.Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		gw:   g,
		conn: NewClientConn(ws, g.metrics),
	}
}

// readPump drains inbound frames in submission order; every handler runs on
// this goroutine, so per-connection ordering needs no further coordination.
func (s *Session) readPump() {
	defer s.disconnect()

	ws := s.conn.ws
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var ev clientEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			Log.Debugw("bad frame", "session", s.id, "err", err)
			continue
		}
		switch ev.Type {
		case "join":
			s.handleJoin(ev.Username)
		case "move":
			s.handleMove(ev.X, ev.Y)
		case "chat":
			if text, ok := ev.chatText(); ok {
				s.handleChat(text)
			}
		case "emote":
			s.handleEmote(ev.Emote)
		default:
			Log.Debugw("unknown event", "session", s.id, "type", ev.Type)
		}
	}
}

// handleJoin completes the handshake: it creates the player in the default
// room, seeds the caller with a snapshot, and announces the arrival to peers.
// A join on an already-joined connection is ignored; re-processing would
// re-announce the player and break the one-room-membership invariant.
func (s *Session) handleJoin(username string) {
	if s.player != nil {
		Log.Warnw("duplicate join ignored", "session", s.id, "player", s.player.Username)
		return
	}
	if username == "" {
		username = fmt.Sprintf("User-%s", s.id[:4])
	}

	// Room selection is not exposed to clients today; everyone lands in the
	// default room. The table itself handles arbitrary room ids already.
	p := NewPlayer(s.id, username, DefaultRoom)
	if !s.gw.table.AddPlayer(DefaultRoom, p) {
		s.gw.metrics.IncJoinsRejected()
		Log.Infow("join rejected, room full", "session", s.id, "room", DefaultRoom)
		s.conn.Enqueue(encode(errorEvent{Type: "error", Message: "Room full"}))
		// Flush the error, then let the write pump tear the socket down.
		s.conn.CloseSend()
		return
	}
	s.player = p
	s.gw.register(DefaultRoom, s)
	s.gw.metrics.IncJoins()

	s.conn.Enqueue(encode(stateEvent{
		Type:    "state",
		ID:      p.ID,
		Players: s.gw.table.Snapshot(DefaultRoom),
	}))
	s.gw.broadcast(DefaultRoom, encode(playerJoinedEvent{Type: "playerJoined", PlayerView: p.View()}), s)

	Log.Infow("player joined", "room", DefaultRoom, "player", username, "id", p.ID)
}

// handleMove records the client-authoritative position and relays it to room
// peers. The sender never hears its own move back; its local prediction is
// already ahead of us.
func (s *Session) handleMove(x, y float64) {
	p := s.player
	if p == nil {
		s.gw.metrics.IncStaleDropped()
		return
	}
	s.gw.table.UpdatePosition(p.Room, p.ID, x, y)
	s.gw.metrics.IncMoves()
	s.gw.broadcast(p.Room, encode(playerMovedEvent{Type: "playerMoved", ID: p.ID, X: x, Y: y}), s)
}

// handleChat relays a message to the whole room, sender included: clients do
// not locally echo, they wait for the round-trip.
func (s *Session) handleChat(text string) {
	p := s.player
	if p == nil {
		s.gw.metrics.IncStaleDropped()
		return
	}
	s.gw.metrics.IncChats()
	s.gw.broadcast(p.Room, encode(chatMessageEvent{
		Type:     "chatMessage",
		ID:       p.ID,
		Username: p.Username,
		Message:  text,
	}), nil)
}

// handleEmote relays a transient emote to the whole room, sender included.
func (s *Session) handleEmote(glyph string) {
	p := s.player
	if p == nil {
		s.gw.metrics.IncStaleDropped()
		return
	}
	s.gw.metrics.IncEmotes()
	s.gw.broadcast(p.Room, encode(playerEmoteEvent{Type: "playerEmote", ID: p.ID, Emote: glyph}), nil)
}

// disconnect runs exactly once per connection, for voluntary close, timeout,
// and transport error alike. Peers only hear playerLeft if the join handshake
// had succeeded.
func (s *Session) disconnect() {
	s.closeOnce.Do(func() {
		if p := s.player; p != nil {
			s.gw.unregister(p.Room, s)
			s.gw.table.RemovePlayer(p.Room, p.ID)
			s.gw.broadcast(p.Room, encode(playerLeftEvent{Type: "playerLeft", ID: p.ID}), nil)
			Log.Infow("player left", "room", p.Room, "player", p.Username, "id", p.ID)
		}
		s.conn.Close()
	})
}
