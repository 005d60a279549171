package server

// World coordinate space shared by every client regardless of viewport size.
const (
	WorldWidth  = 800.0
	WorldHeight = 600.0
	SpawnX      = 400.0
	SpawnY      = 300.0
)

// DefaultAvatar is the only sprite set shipped today; the field exists so new
// animal variants slot in without a wire change.
const DefaultAvatar = "wolf"

// Player is the authoritative per-connection state. It lives in exactly one
// room for the lifetime of its connection.
type Player struct {
	ID       string
	Username string
	Avatar   string
	X        float64
	Y        float64
	Room     string
}

// PlayerView is the public wire shape of a Player.
type PlayerView struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Room     string  `json:"room"`
}

// NewPlayer creates a player at the spawn point.
func NewPlayer(id, username, room string) *Player {
	return &Player{
		ID:       id,
		Username: username,
		Avatar:   DefaultAvatar,
		X:        SpawnX,
		Y:        SpawnY,
		Room:     room,
	}
}

// View returns the player's public wire representation.
func (p *Player) View() PlayerView {
	return PlayerView{
		ID:       p.ID,
		X:        p.X,
		Y:        p.Y,
		Username: p.Username,
		Avatar:   p.Avatar,
		Room:     p.Room,
	}
}
