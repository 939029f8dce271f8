// Package airplane models a single airplane, the mutex-guarded slot that
// holds it, and the control law that flies it along its trajectory.
package airplane

import (
	"fmt"
	"sync"

	"github.com/yegors/airport-sim/internal/trajectory"
)

// Status is the phase of an airplane's life at the airport.
type Status int

const (
	InboundHolding Status = iota
	InboundLanding
	OutboundHolding
	OutboundTakeoff
)

var statusNames = map[Status]string{
	InboundHolding:  "inbound_holding",
	InboundLanding:  "inbound_landing",
	OutboundHolding: "outbound_holding",
	OutboundTakeoff: "outbound_takeoff",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON and msgpack payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Inbound reports whether the airplane is arriving.
func (s Status) Inbound() bool {
	return s == InboundHolding || s == InboundLanding
}

// Holding reports whether the airplane is waiting for a runway.
func (s Status) Holding() bool {
	return s == InboundHolding || s == OutboundHolding
}

// NoRunway marks an airplane that does not occupy a runway.
const NoRunway = -1

// Airplane is the state of one airplane. Values are copied freely; the
// trajectory is shared with every other airplane flying it.
type Airplane struct {
	ID       int    `json:"id"`
	Callsign string `json:"callsign"`

	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed"`

	Trajectory   *trajectory.Trajectory `json:"-"`
	TrajIndex    int                    `json:"traj_index"`
	TrajFinished bool                   `json:"traj_finished"`

	Status Status `json:"status"`
	Runway int    `json:"runway"`
	Kill   bool   `json:"kill"`

	// Revision counts trajectory assignments.
	Revision uint64 `json:"revision"`
}

// TrajectoryName returns the name of the assigned trajectory, or "".
func (a Airplane) TrajectoryName() string {
	if a.Trajectory == nil {
		return ""
	}
	return a.Trajectory.Name()
}

// Assign points the airplane at a new trajectory from its first waypoint.
func (a *Airplane) Assign(traj *trajectory.Trajectory, status Status, runway int) {
	a.Trajectory = traj
	a.TrajIndex = 0
	a.TrajFinished = false
	a.Status = status
	a.Runway = runway
	a.Revision++
}

// Shared is one pool slot: an airplane guarded by its own mutex. The id is
// fixed when the slot is built.
type Shared struct {
	id int

	mu    sync.Mutex
	plane Airplane
}

// NewShared returns an empty slot with a stable id.
func NewShared(id int) *Shared {
	return &Shared{id: id, plane: Airplane{ID: id, Runway: NoRunway}}
}

func (s *Shared) ID() int { return s.id }

// Load returns a copy of the airplane.
func (s *Shared) Load() Airplane {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plane
}

// Reset replaces the whole airplane, keeping the slot id.
func (s *Shared) Reset(a Airplane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id
	s.plane = a
}

// Update runs fn on the airplane under the slot lock. fn must not block.
func (s *Shared) Update(fn func(a *Airplane)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.plane)
	s.plane.ID = s.id
}

// Commit writes back the result of a control step computed on the copy
// before. Kinematics are always written. Trajectory progress is written only
// if no reassignment happened since before was loaded, so a new trajectory
// is never overwritten with the old one's index. It returns the kill flag.
func (s *Shared) Commit(before, after Airplane) (kill bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plane.X = after.X
	s.plane.Y = after.Y
	s.plane.Heading = after.Heading
	s.plane.Speed = after.Speed
	if s.plane.Revision == before.Revision {
		s.plane.TrajIndex = after.TrajIndex
		s.plane.TrajFinished = after.TrajFinished
	}
	return s.plane.Kill
}

// Killed reports whether the traffic controller asked the airplane to leave.
func (s *Shared) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plane.Kill
}
