package server

import "encoding/json"

// Wire protocol: every frame is a JSON object with a "type" discriminator.
// Inbound types: join, move, chat, emote. Outbound types: state,
// playerJoined, playerMoved, playerLeft, chatMessage, playerEmote, error.

// clientEvent is the inbound envelope. Fields not used by the given type are
// left at their zero value.
type clientEvent struct {
	Type     string          `json:"type"`
	Username string          `json:"username,omitempty"`
	X        float64         `json:"x,omitempty"`
	Y        float64         `json:"y,omitempty"`
	Message  json.RawMessage `json:"message,omitempty"`
	Emote    string          `json:"emote,omitempty"`
}

// chatText extracts the chat payload, which historically arrives either as a
// bare string or wrapped as {"message": "..."}.
func (e *clientEvent) chatText() (string, bool) {
	if len(e.Message) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s, true
	}
	var wrapped struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Message, &wrapped); err == nil {
		return wrapped.Message, true
	}
	return "", false
}

// stateEvent seeds a newly joined client with the full room snapshot. The id
// field tells the client which entry is itself; it owes its existence to the
// connection id not being visible to the client otherwise.
type stateEvent struct {
	Type    string                `json:"type"`
	ID      string                `json:"id"`
	Players map[string]PlayerView `json:"players"`
}

type playerJoinedEvent struct {
	Type string `json:"type"`
	PlayerView
}

type playerMovedEvent struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type playerLeftEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type chatMessageEvent struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type playerEmoteEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Emote string `json:"emote"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// encode marshals an outbound event. The event types above cannot fail to
// marshal, so the error is dropped the same way the broadcast path drops a
// slow consumer.
func encode(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
