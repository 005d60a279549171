package client

// The rest zone is a fixed clearing in world coordinates, identical on every
// client. Entering it fires a single rest emote on the rising edge.
const (
	RestZoneX = 650.0
	RestZoneY = 460.0
	RestZoneR = 80.0
	RestEmote = "💤"
)

// CircleZone detects entry into and exit from a circular world-space area.
type CircleZone struct {
	X, Y, R float64

	inside bool
}

// Contains reports whether the point lies within the zone.
func (z *CircleZone) Contains(x, y float64) bool {
	dx, dy := x-z.X, y-z.Y
	return dx*dx+dy*dy <= z.R*z.R
}

// Update feeds the zone the current position and reports true exactly on the
// rising edge of entry: not again while inside, never on exit.
func (z *CircleZone) Update(x, y float64) bool {
	in := z.Contains(x, y)
	entered := in && !z.inside
	z.inside = in
	return entered
}
