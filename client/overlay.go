package client

import "time"

const (
	// BubbleLifetime is how long a speech bubble stays up before fading.
	BubbleLifetime = 5 * time.Second
	// BubbleFade is the fade-out window appended to the lifetime; the bubble
	// is removed once it elapses.
	BubbleFade = 500 * time.Millisecond
	// EmoteLifetime is the full scale/fade life of a transient emote glyph.
	EmoteLifetime = 1500 * time.Millisecond
)

// Bubble is one live speech bubble, pinned above its owner.
type Bubble struct {
	PlayerID string
	Text     string
	X, Y     float64
	expires  time.Time
}

// Fading reports whether the bubble has entered its fade-out window.
func (b *Bubble) Fading(now time.Time) bool {
	return !now.Before(b.expires)
}

// Emote is one transient glyph, pinned above its owner.
type Emote struct {
	PlayerID string
	Glyph    string
	X, Y     float64
	expires  time.Time
}

// OverlayManager owns one bubble slot and one emote slot per player. A new
// bubble overwrites the slot outright, which discards the old expiry with
// it; no stale timer can remove its replacement. Overlays are not state:
// they are spawned by one-shot events and pruned here on every frame.
type OverlayManager struct {
	now     func() time.Time
	bubbles map[string]*Bubble
	emotes  map[string]*Emote
}

func NewOverlayManager() *OverlayManager {
	return &OverlayManager{
		now:     time.Now,
		bubbles: make(map[string]*Bubble),
		emotes:  make(map[string]*Emote),
	}
}

// ShowBubble replaces the player's bubble, if any, with a fresh one.
func (m *OverlayManager) ShowBubble(playerID, text string) {
	m.bubbles[playerID] = &Bubble{
		PlayerID: playerID,
		Text:     text,
		expires:  m.now().Add(BubbleLifetime),
	}
}

// ShowEmote replaces the player's emote slot with a fresh glyph. Emotes are
// independent of speech bubbles.
func (m *OverlayManager) ShowEmote(playerID, glyph string) {
	m.emotes[playerID] = &Emote{
		PlayerID: playerID,
		Glyph:    glyph,
		expires:  m.now().Add(EmoteLifetime),
	}
}

// Update prunes expired overlays and pins the survivors to their owner's
// current rendered position. pos reports the position of a tracked player;
// overlays whose owner is no longer tracked are dropped.
func (m *OverlayManager) Update(pos func(playerID string) (x, y float64, ok bool)) {
	now := m.now()
	for id, b := range m.bubbles {
		x, y, ok := pos(id)
		if !ok || now.After(b.expires.Add(BubbleFade)) {
			delete(m.bubbles, id)
			continue
		}
		b.X, b.Y = x, y
	}
	for id, e := range m.emotes {
		x, y, ok := pos(id)
		if !ok || now.After(e.expires) {
			delete(m.emotes, id)
			continue
		}
		e.X, e.Y = x, y
	}
}

// Bubble returns the player's live bubble, if any.
func (m *OverlayManager) Bubble(playerID string) (*Bubble, bool) {
	b, ok := m.bubbles[playerID]
	return b, ok
}

// EmoteFor returns the player's live emote, if any.
func (m *OverlayManager) EmoteFor(playerID string) (*Emote, bool) {
	e, ok := m.emotes[playerID]
	return e, ok
}
