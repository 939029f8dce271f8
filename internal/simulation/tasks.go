package simulation

import (
	"fmt"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/pool"
	"github.com/yegors/airport-sim/internal/ptask"
	"github.com/yegors/airport-sim/pkg/logger"
)

// TaskSpec describes a periodic task. A zero deadline equals the period.
type TaskSpec struct {
	Name       string
	PeriodMs   int
	DeadlineMs int
	Priority   int
}

// StartTask runs tick once per period on a new task until shutdown. The
// task shows up in TaskStates while it runs.
func (s *Service) StartTask(spec TaskSpec, tick func()) (*ptask.Task, error) {
	if s.shutdown.Load() {
		return nil, ErrShuttingDown
	}
	t, err := s.newTask(spec, s.nextID())
	if err != nil {
		return nil, err
	}
	err = s.launch(t, func(t *ptask.Task) {
		t.SetActivation()
		for !s.shutdown.Load() {
			tick()
			s.checkDeadline(t)
			t.WaitForActivation()
		}
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) newTask(spec TaskSpec, id int) (*ptask.Task, error) {
	deadline := spec.DeadlineMs
	if deadline == 0 {
		deadline = spec.PeriodMs
	}
	opts := append([]ptask.Option{ptask.WithPolicy(s.policy)}, s.taskOpts...)
	t, err := ptask.New(id, spec.Name, spec.PeriodMs, deadline, spec.Priority, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid task %s: %w", spec.Name, err)
	}
	return t, nil
}

func (s *Service) nextID() int {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	id := s.nextTaskID
	s.nextTaskID++
	return id
}

// launch registers t and creates its thread. If the thread cannot be
// created the failure stays local to this task.
func (s *Service) launch(t *ptask.Task, body func(*ptask.Task)) error {
	s.tasksMu.Lock()
	s.tasks[t.ID] = t
	s.tasksMu.Unlock()

	s.wg.Add(1)
	err := t.Create(func(t *ptask.Task) {
		defer s.wg.Done()
		defer s.unregister(t)
		body(t)
	})
	if err != nil {
		s.wg.Done()
		s.unregister(t)
		s.logger.Error("Failed to create task",
			logger.String("task", t.Name),
			logger.Int("priority", t.Priority()),
			logger.Error(err))
		s.events.Publish(events.Event{
			Type:       events.TaskFailed,
			AirplaneID: -1,
			Runway:     -1,
			Task:       t.Name,
			Message:    err.Error(),
		})
		return err
	}
	return nil
}

func (s *Service) unregister(t *ptask.Task) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	s.retiredMisses += t.Misses()
	// A recycled slot may already run its next airplane under the same id
	if cur, ok := s.tasks[t.ID]; ok && cur == t {
		delete(s.tasks, t.ID)
	}
}

// checkDeadline reports a miss of the current instance. Misses never stop
// the task.
func (s *Service) checkDeadline(t *ptask.Task) {
	if !t.DeadlineMissed() {
		return
	}
	misses := t.Misses()
	s.logger.Warn("Deadline missed",
		logger.String("task", t.Name),
		logger.Int64("misses", misses))
	s.events.Publish(events.Event{
		Type:       events.DeadlineMiss,
		AirplaneID: -1,
		Runway:     -1,
		Task:       t.Name,
		Misses:     misses,
	})
}

// flyAirplane is the body of the task bound to slot h: copy out, step,
// commit, once per period, until shutdown or until the traffic controller
// kills the airplane. On exit the slot goes back to the pool.
func (s *Service) flyAirplane(h pool.Handle) func(*ptask.Task) {
	slot := s.pool.Slot(h)
	return func(t *ptask.Task) {
		defer s.retireAirplane(h)

		t.SetActivation()
		for !s.shutdown.Load() {
			before := slot.Load()
			if before.Kill {
				return
			}
			if slot.Commit(before, airplane.Step(before, s.params)) {
				// Killed by the traffic controller during this period
				return
			}

			s.checkDeadline(t)
			t.WaitForActivation()
		}
	}
}

func (s *Service) retireAirplane(h pool.Handle) {
	plane := s.pool.Slot(h).Load()
	s.pool.Release(h)
	count := s.addAirplanes(-1)

	if !plane.Kill {
		// Stopped by shutdown
		return
	}
	s.logger.Info("Airplane left",
		logger.String("callsign", plane.Callsign),
		logger.Int("airplane_id", plane.ID),
		logger.String("status", plane.Status.String()),
		logger.Int("airplanes", count))
	s.events.Publish(events.Event{
		Type:       events.Despawned,
		AirplaneID: plane.ID,
		Callsign:   plane.Callsign,
		Status:     plane.Status.String(),
		Runway:     -1,
	})
}
