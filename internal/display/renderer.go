// Package display is the presentation task. Each period it copies the live
// airplanes and the state snapshots, keeps the trails, and hands a frame to
// the sinks (websocket viewers, terminal panel). It never holds a
// simulation lock while a sink works.
package display

import (
	"sync/atomic"
	"time"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/simulation"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/pkg/logger"
)

// Source is the read-only view of the simulation.
type Source interface {
	CopyLiveAirplanes(max int) []airplane.Airplane
	SystemState() simulation.SystemState
	TaskStates() []simulation.TaskState
	Toggles() simulation.Toggles
	TotalMisses() int64
}

// Sink receives frames. ShowFrame must not block the presentation task.
type Sink interface {
	ShowFrame(f *Frame)
}

// AirplaneView is an airplane as drawn.
type AirplaneView struct {
	ID         int                  `json:"id" msgpack:"id"`
	Callsign   string               `json:"callsign" msgpack:"callsign"`
	X          float64              `json:"x" msgpack:"x"`
	Y          float64              `json:"y" msgpack:"y"`
	Heading    float64              `json:"heading" msgpack:"heading"`
	Speed      float64              `json:"speed" msgpack:"speed"`
	Status     string               `json:"status" msgpack:"status"`
	Runway     int                  `json:"runway" msgpack:"runway"`
	Trajectory string               `json:"trajectory" msgpack:"trajectory"`
	TrajIndex  int                  `json:"traj_index" msgpack:"traj_index"`
	Trail      []Point              `json:"trail,omitempty" msgpack:"trail,omitempty"`
	Next       *trajectory.Waypoint `json:"next_waypoint,omitempty" msgpack:"next_waypoint,omitempty"`
}

// Frame is one presentation snapshot.
type Frame struct {
	Seq         uint64                 `json:"seq" msgpack:"seq"`
	Time        time.Time              `json:"time" msgpack:"time"`
	Airplanes   []AirplaneView         `json:"airplanes" msgpack:"airplanes"`
	System      simulation.SystemState `json:"system" msgpack:"system"`
	Tasks       []simulation.TaskState `json:"tasks" msgpack:"tasks"`
	Toggles     simulation.Toggles     `json:"toggles" msgpack:"toggles"`
	TotalMisses int64                  `json:"total_misses" msgpack:"total_misses"`
}

// Renderer builds frames. Tick is called by one task only.
type Renderer struct {
	src          Source
	sinks        []Sink
	maxAirplanes int
	trailLength  int
	logger       *logger.Logger

	trails map[int]*trail
	seq    uint64
	latest atomic.Pointer[Frame]
}

// New returns a renderer showing up to maxAirplanes with trails of
// trailLength positions.
func New(src Source, maxAirplanes, trailLength int, log *logger.Logger, sinks ...Sink) *Renderer {
	if trailLength <= 0 {
		trailLength = 50
	}
	return &Renderer{
		src:          src,
		sinks:        sinks,
		maxAirplanes: maxAirplanes,
		trailLength:  trailLength,
		logger:       log.Named("display"),
		trails:       make(map[int]*trail),
	}
}

// AddSink registers a sink. Call before the task starts.
func (r *Renderer) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Latest returns the last frame built, or nil.
func (r *Renderer) Latest() *Frame {
	return r.latest.Load()
}

// Tick is the body of the presentation task.
func (r *Renderer) Tick() {
	planes := r.src.CopyLiveAirplanes(r.maxAirplanes)
	toggles := r.src.Toggles()

	r.updateTrails(planes)

	r.seq++
	frame := &Frame{
		Seq:         r.seq,
		Time:        time.Now().UTC(),
		Airplanes:   make([]AirplaneView, 0, len(planes)),
		System:      r.src.SystemState(),
		Tasks:       r.src.TaskStates(),
		Toggles:     toggles,
		TotalMisses: r.src.TotalMisses(),
	}
	for _, a := range planes {
		view := AirplaneView{
			ID:         a.ID,
			Callsign:   a.Callsign,
			X:          a.X,
			Y:          a.Y,
			Heading:    a.Heading,
			Speed:      a.Speed,
			Status:     a.Status.String(),
			Runway:     a.Runway,
			Trajectory: a.TrajectoryName(),
			TrajIndex:  a.TrajIndex,
		}
		if toggles.Trails {
			view.Trail = r.trails[a.ID].snapshot()
		}
		if toggles.Waypoints {
			if wp, ok := a.Trajectory.Point(a.TrajIndex); ok {
				view.Next = &wp
			}
		}
		frame.Airplanes = append(frame.Airplanes, view)
	}

	r.latest.Store(frame)
	for _, s := range r.sinks {
		s.ShowFrame(frame)
	}
}

// updateTrails records the current positions. Slots reused by a new
// airplane start a fresh trail; trails of departed airplanes are dropped.
func (r *Renderer) updateTrails(planes []airplane.Airplane) {
	live := make(map[int]bool, len(planes))
	for _, a := range planes {
		live[a.ID] = true
		t, ok := r.trails[a.ID]
		if !ok || t.callsign != a.Callsign {
			t = newTrail(a.Callsign, r.trailLength)
			r.trails[a.ID] = t
		}
		t.push(Point{X: a.X, Y: a.Y})
	}
	for id := range r.trails {
		if !live[id] {
			delete(r.trails, id)
		}
	}
}
