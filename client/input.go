package client

// World coordinate space. Must stay in lockstep with the server: positions
// are exchanged in these units regardless of each client's viewport size.
const (
	WorldWidth  = 800.0
	WorldHeight = 600.0
)

// Speed is the local player's displacement per tick, in world units.
const Speed = 4.0

// Key identifies a movement key. Key state is tracked per key rather than
// per key event so combined presses produce diagonal motion.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
)

// KeyState tracks which movement keys are currently held.
type KeyState struct {
	down map[Key]bool
}

func NewKeyState() *KeyState {
	return &KeyState{down: make(map[Key]bool)}
}

// Set records a key press or release.
func (k *KeyState) Set(key Key, pressed bool) {
	if pressed {
		k.down[key] = true
	} else {
		delete(k.down, key)
	}
}

// Down reports whether the key is currently held.
func (k *KeyState) Down(key Key) bool {
	return k.down[key]
}

// Step advances a position by one tick of held input and clamps it to the
// world bounds. On each axis the first-listed direction wins when both are
// held, matching how the scene has always resolved the conflict.
func Step(x, y float64, keys *KeyState) (float64, float64) {
	if keys.Down(KeyLeft) {
		x -= Speed
	} else if keys.Down(KeyRight) {
		x += Speed
	}
	if keys.Down(KeyUp) {
		y -= Speed
	} else if keys.Down(KeyDown) {
		y += Speed
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > WorldWidth {
		x = WorldWidth
	}
	if y > WorldHeight {
		y = WorldHeight
	}
	return x, y
}
