package client

import "testing"

func TestStepSingleAxis(t *testing.T) {
	keys := NewKeyState()
	keys.Set(KeyRight, true)

	x, y := Step(100, 100, keys)
	if x != 100+Speed || y != 100 {
		t.Fatalf("got (%v,%v), want (%v,100)", x, y, 100+Speed)
	}
}

func TestStepDiagonal(t *testing.T) {
	keys := NewKeyState()
	keys.Set(KeyLeft, true)
	keys.Set(KeyUp, true)

	x, y := Step(100, 100, keys)
	if x != 100-Speed || y != 100-Speed {
		t.Fatalf("got (%v,%v), want (%v,%v)", x, y, 100-Speed, 100-Speed)
	}
}

func TestStepOpposedKeysFirstAxisWins(t *testing.T) {
	keys := NewKeyState()
	keys.Set(KeyLeft, true)
	keys.Set(KeyRight, true)

	x, _ := Step(100, 100, keys)
	if x != 100-Speed {
		t.Fatalf("x = %v with both horizontal keys held, want %v", x, 100-Speed)
	}
}

func TestStepReleasedKeyStops(t *testing.T) {
	keys := NewKeyState()
	keys.Set(KeyDown, true)
	keys.Set(KeyDown, false)

	x, y := Step(100, 100, keys)
	if x != 100 || y != 100 {
		t.Fatalf("got (%v,%v) after release, want (100,100)", x, y)
	}
}

func TestStepClampsToWorldBounds(t *testing.T) {
	keys := NewKeyState()
	keys.Set(KeyLeft, true)
	keys.Set(KeyUp, true)
	if x, y := Step(1, 1, keys); x != 0 || y != 0 {
		t.Fatalf("got (%v,%v) at origin corner, want (0,0)", x, y)
	}

	keys = NewKeyState()
	keys.Set(KeyRight, true)
	keys.Set(KeyDown, true)
	if x, y := Step(WorldWidth-1, WorldHeight-1, keys); x != WorldWidth || y != WorldHeight {
		t.Fatalf("got (%v,%v) at far corner, want (%v,%v)", x, y, WorldWidth, WorldHeight)
	}
}
