package display

// Point is a past position.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// trail is a ring buffer of the last positions of one airplane.
type trail struct {
	callsign string
	points   []Point
	top      int // next write position
	size     int
}

func newTrail(callsign string, length int) *trail {
	return &trail{callsign: callsign, points: make([]Point, length)}
}

func (t *trail) push(p Point) {
	t.points[t.top] = p
	t.top = (t.top + 1) % len(t.points)
	if t.size < len(t.points) {
		t.size++
	}
}

// snapshot returns the positions oldest first.
func (t *trail) snapshot() []Point {
	out := make([]Point, t.size)
	start := (t.top - t.size + len(t.points)) % len(t.points)
	for i := range out {
		out[i] = t.points[(start+i)%len(t.points)]
	}
	return out
}
