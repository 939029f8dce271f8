package simulation

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/internal/traffic"
	"github.com/yegors/airport-sim/pkg/logger"
)

// SystemState is the aggregated view of the airport.
type SystemState struct {
	Airplanes int                   `json:"airplanes" msgpack:"airplanes"`
	PoolSize  int                   `json:"pool_size" msgpack:"pool_size"`
	PoolFree  int                   `json:"pool_free" msgpack:"pool_free"`
	Queued    []int                 `json:"queued" msgpack:"queued"`
	Runways   []traffic.RunwayState `json:"runways" msgpack:"runways"`
	Shutdown  bool                  `json:"shutdown" msgpack:"shutdown"`
}

// TaskState is the public view of one periodic task.
type TaskState struct {
	ID       int           `json:"id" msgpack:"id"`
	Name     string        `json:"name" msgpack:"name"`
	Period   time.Duration `json:"period" msgpack:"period"`
	Deadline time.Duration `json:"deadline" msgpack:"deadline"`
	Priority int           `json:"priority" msgpack:"priority"`
	Policy   string        `json:"policy" msgpack:"policy"`
	Running  bool          `json:"running" msgpack:"running"`
	Misses   int64         `json:"misses" msgpack:"misses"`
}

// Toggles are the display and generator switches.
type Toggles struct {
	Trails    bool `json:"trails" msgpack:"trails"`
	Waypoints bool `json:"waypoints" msgpack:"waypoints"`
	AutoSpawn bool `json:"auto_spawn" msgpack:"auto_spawn"`
}

func (s *Service) addAirplanes(delta int) int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.system.Airplanes += delta
	return s.system.Airplanes
}

func (s *Service) setRunways(runways []traffic.RunwayState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.system.Runways = runways
}

// SystemState returns a copy of the airport state.
func (s *Service) SystemState() SystemState {
	s.stateMu.Lock()
	state := s.system
	state.Runways = append([]traffic.RunwayState(nil), s.system.Runways...)
	s.stateMu.Unlock()

	state.PoolSize = s.pool.Cap()
	state.PoolFree = s.pool.Free()
	state.Queued = queuedIDs(s.queue.Snapshot())
	state.Shutdown = s.shutdown.Load()
	return state
}

// TaskStates lists the running tasks ordered by id.
func (s *Service) TaskStates() []TaskState {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	states := make([]TaskState, 0, len(s.tasks))
	for _, t := range s.tasks {
		states = append(states, TaskState{
			ID:       t.ID,
			Name:     t.Name,
			Period:   t.Period(),
			Deadline: t.Deadline(),
			Priority: t.Priority(),
			Policy:   t.Policy().String(),
			Running:  t.Running(),
			Misses:   t.Misses(),
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// TotalMisses sums deadline misses of running and finished tasks.
func (s *Service) TotalMisses() int64 {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	total := s.retiredMisses
	for _, t := range s.tasks {
		total += t.Misses()
	}
	return total
}

// CopyLiveAirplanes returns value copies of at most max live airplanes.
func (s *Service) CopyLiveAirplanes(max int) []airplane.Airplane {
	return s.pool.CopyLive(max)
}

// Airplane returns a copy of the live airplane with the given id.
func (s *Service) Airplane(id int) (airplane.Airplane, bool) {
	for _, h := range s.pool.Occupied() {
		if int(h) == id {
			return s.pool.Slot(h).Load(), true
		}
	}
	return airplane.Airplane{}, false
}

// PoolSize returns the maximum number of live airplanes.
func (s *Service) PoolSize() int { return s.pool.Cap() }

// Toggles returns the current switches.
func (s *Service) Toggles() Toggles {
	return Toggles{
		Trails:    s.trails.Load(),
		Waypoints: s.waypoints.Load(),
		AutoSpawn: s.autoSpawn.Load(),
	}
}

// SetDisplayToggles sets the initial trail and waypoint switches.
func (s *Service) SetDisplayToggles(trails, waypoints bool) {
	s.trails.Store(trails)
	s.waypoints.Store(waypoints)
}

// Execute carries out a user command. Only the input task calls it, so
// Exit is the one path to shutdown from inside the simulation.
func (s *Service) Execute(cmd input.Command) error {
	switch cmd {
	case input.SpawnInbound:
		_, err := s.SpawnInbound()
		return err
	case input.SpawnOutbound:
		_, err := s.SpawnOutbound()
		return err
	case input.ToggleTrails:
		toggle(&s.trails)
	case input.ToggleWaypoints:
		toggle(&s.waypoints)
	case input.ToggleAutoSpawn:
		toggle(&s.autoSpawn)
	case input.Exit:
		s.Shutdown()
	default:
		return fmt.Errorf("%w: %v", input.ErrUnknownCommand, cmd)
	}
	s.logger.Debug("Command executed", logger.String("command", cmd.String()))
	return nil
}

func toggle(b *atomic.Bool) {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return
		}
	}
}
