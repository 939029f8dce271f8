// Package ptask runs units of work once per fixed period on a dedicated
// thread, tracking absolute deadlines and counting overruns.
//
// A task body follows the pattern
//
//	t.SetActivation()
//	for !stop() {
//		work()
//		if t.DeadlineMissed() {
//			log()
//		}
//		t.WaitForActivation()
//	}
package ptask

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	MinPriority = 0
	MaxPriority = 99
)

var (
	ErrInvalidPriority = errors.New("priority out of range")
	ErrInvalidPeriod   = errors.New("period and deadline must be positive")
	ErrSchedule        = errors.New("cannot create task thread")
	ErrAlreadyStarted  = errors.New("task already started")
)

// Policy selects the scheduling class of a task thread.
type Policy int

const (
	// PolicyDefault runs the task on its own OS thread under the default
	// time-sharing class. Priorities are recorded but not applied.
	PolicyDefault Policy = iota
	// PolicyFIFO moves the task thread to SCHED_FIFO at the task priority.
	PolicyFIFO
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "none", "default":
		return PolicyDefault, nil
	case "fifo":
		return PolicyFIFO, nil
	default:
		return PolicyDefault, fmt.Errorf("unknown scheduling policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyFIFO {
		return "fifo"
	}
	return "default"
}

// Task is a periodic activity with a relative deadline and fixed priority.
type Task struct {
	ID   int
	Name string

	periodMs   int
	deadlineMs int
	priority   int
	policy     Policy
	clock      Clock
	sched      func(priority int) error

	// Written only by the task's own goroutine.
	nextActivation time.Time
	absDeadline    time.Time

	misses  atomic.Int64
	running atomic.Bool
	done    chan struct{}
}

// Option customises a Task at construction.
type Option func(*Task)

// WithPolicy sets the scheduling class.
func WithPolicy(p Policy) Option {
	return func(t *Task) { t.policy = p }
}

// WithScheduler replaces the hook that applies PolicyFIFO to the task
// thread. It runs on the locked thread before the body.
func WithScheduler(fn func(priority int) error) Option {
	return func(t *Task) { t.sched = fn }
}

// WithClock replaces the system clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(t *Task) { t.clock = c }
}

// New validates the timing parameters and returns an armed task.
func New(id int, name string, periodMs, deadlineMs, priority int, opts ...Option) (*Task, error) {
	if priority < MinPriority || priority > MaxPriority {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidPriority, priority, MinPriority, MaxPriority)
	}
	if periodMs <= 0 || deadlineMs <= 0 {
		return nil, fmt.Errorf("%w: period=%dms deadline=%dms", ErrInvalidPeriod, periodMs, deadlineMs)
	}

	t := &Task{
		ID:         id,
		Name:       name,
		periodMs:   periodMs,
		deadlineMs: deadlineMs,
		priority:   priority,
		clock:      systemClock{},
		sched:      setFIFO,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Task) Period() time.Duration   { return time.Duration(t.periodMs) * time.Millisecond }
func (t *Task) Deadline() time.Duration { return time.Duration(t.deadlineMs) * time.Millisecond }
func (t *Task) Priority() int           { return t.priority }
func (t *Task) Policy() Policy          { return t.policy }

// Misses returns the cumulative number of deadline misses.
func (t *Task) Misses() int64 { return t.misses.Load() }

// Running reports whether the task body is executing.
func (t *Task) Running() bool { return t.running.Load() }

// SetActivation anchors the first activation and deadline at the current time.
func (t *Task) SetActivation() {
	now := t.clock.Now()
	t.nextActivation = AddMs(now, t.periodMs)
	t.absDeadline = AddMs(now, t.deadlineMs)
}

// DeadlineMissed reports whether the current instance ran past its absolute
// deadline, counting the miss if so. It never blocks.
func (t *Task) DeadlineMissed() bool {
	if Compare(t.clock.Now(), t.absDeadline) > 0 {
		t.misses.Add(1)
		return true
	}
	return false
}

// WaitForActivation suspends until the next absolute activation instant and
// then moves both activation and deadline one period forward.
func (t *Task) WaitForActivation() {
	t.clock.SleepUntil(t.nextActivation)
	t.nextActivation = AddMs(t.nextActivation, t.periodMs)
	t.absDeadline = AddMs(t.absDeadline, t.periodMs)
}

// NextActivation returns the instant the task will next wake up.
func (t *Task) NextActivation() time.Time { return t.nextActivation }

// AbsDeadline returns the deadline of the current instance.
func (t *Task) AbsDeadline() time.Time { return t.absDeadline }

// Create starts body on its own locked OS thread. With PolicyFIFO the thread
// is moved to SCHED_FIFO before body runs; if that fails body never runs and the
// error wraps ErrSchedule.
func (t *Task) Create(body func(*Task)) error {
	if t.done != nil {
		return ErrAlreadyStarted
	}
	t.done = make(chan struct{})
	started := make(chan error, 1)

	go func() {
		defer close(t.done)

		// Never unlocked: the thread exits with the goroutine instead of
		// returning to the runtime with a real-time policy attached.
		runtime.LockOSThread()
		if t.policy == PolicyFIFO {
			if err := t.sched(t.priority); err != nil {
				started <- err
				return
			}
		}
		started <- nil

		t.running.Store(true)
		defer t.running.Store(false)
		body(t)
	}()

	if err := <-started; err != nil {
		return fmt.Errorf("%w %q (priority %d): %v", ErrSchedule, t.Name, t.priority, err)
	}
	return nil
}

// Join blocks until the task body returns. It returns immediately for a
// task that was never created.
func (t *Task) Join() {
	if t.done == nil {
		return
	}
	<-t.done
}

// Done is closed when the task body has returned.
func (t *Task) Done() <-chan struct{} {
	if t.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.done
}
