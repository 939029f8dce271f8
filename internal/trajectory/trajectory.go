// Package trajectory holds the waypoint sequences airplanes follow. Trajectories
// are built once at startup and shared read-only by every airplane assigned to
// them.
package trajectory

import "fmt"

// MaxWaypoints bounds the size of any trajectory.
const MaxWaypoints = 50

// Waypoint is one target of a trajectory.
type Waypoint struct {
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Heading float64 `json:"heading" msgpack:"heading"` // rad
	Speed   float64 `json:"speed" msgpack:"speed"`     // m/s
}

// Trajectory is an immutable ordered list of waypoints, optionally cyclic.
type Trajectory struct {
	name      string
	waypoints []Waypoint
	cyclic    bool
}

// New copies points into a trajectory. It panics if the sequence is empty
// or longer than MaxWaypoints; trajectories are built from constants.
func New(name string, cyclic bool, points []Waypoint) *Trajectory {
	if len(points) == 0 || len(points) > MaxWaypoints {
		panic(fmt.Sprintf("trajectory %s: %d waypoints not in [1, %d]", name, len(points), MaxWaypoints))
	}
	wps := make([]Waypoint, len(points))
	copy(wps, points)
	return &Trajectory{name: name, waypoints: wps, cyclic: cyclic}
}

func (t *Trajectory) Name() string   { return t.name }
func (t *Trajectory) Len() int       { return len(t.waypoints) }
func (t *Trajectory) IsCyclic() bool { return t.cyclic }

// Point returns the waypoint at index. Past the end a cyclic trajectory wraps
// around; a finite one reports false, meaning the trajectory is exhausted.
// A nil trajectory has no waypoints.
func (t *Trajectory) Point(index int) (Waypoint, bool) {
	if t == nil || index < 0 {
		return Waypoint{}, false
	}
	if index < len(t.waypoints) {
		return t.waypoints[index], true
	}
	if t.cyclic {
		return t.waypoints[index%len(t.waypoints)], true
	}
	return Waypoint{}, false
}

// Waypoints returns a copy of the points, for presentation.
func (t *Trajectory) Waypoints() []Waypoint {
	out := make([]Waypoint, len(t.waypoints))
	copy(out, t.waypoints)
	return out
}
