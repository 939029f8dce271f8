// Package events fans simulation lifecycle events out to sinks (flight log,
// websocket viewers, NATS) without ever blocking the publishing task.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/airport-sim/pkg/logger"
)

// Type names an event kind.
type Type string

const (
	Spawned        Type = "spawned"
	RunwayAssigned Type = "runway_assigned"
	RunwayReleased Type = "runway_released"
	Despawned      Type = "despawned"
	StatusError    Type = "status_error"
	DeadlineMiss   Type = "deadline_miss"
	TaskFailed     Type = "task_failed"
)

// Event is one lifecycle fact. Fields that do not apply stay zero.
type Event struct {
	Type       Type      `json:"type" msgpack:"type"`
	Time       time.Time `json:"time" msgpack:"time"`
	AirplaneID int       `json:"airplane_id" msgpack:"airplane_id"`
	Callsign   string    `json:"callsign,omitempty" msgpack:"callsign,omitempty"`
	Status     string    `json:"status,omitempty" msgpack:"status,omitempty"`
	Runway     int       `json:"runway" msgpack:"runway"`
	Task       string    `json:"task,omitempty" msgpack:"task,omitempty"`
	Misses     int64     `json:"misses,omitempty" msgpack:"misses,omitempty"`
	Message    string    `json:"message,omitempty" msgpack:"message,omitempty"`
}

// Publisher accepts events. Implementations must not block.
type Publisher interface {
	Publish(e Event)
}

// Sink consumes events on the bus worker goroutine.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Bus buffers events and hands them to every sink from one worker.
type Bus struct {
	logger *logger.Logger
	sinks  []Sink
	ch     chan Event

	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewBus creates a bus with room for buffer pending events.
func NewBus(log *logger.Logger, buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		logger: log.Named("events"),
		sinks:  sinks,
		ch:     make(chan Event, buffer),
	}
}

// AddSink registers a sink. Call before Start.
func (b *Bus) AddSink(s Sink) {
	b.sinks = append(b.sinks, s)
}

// Start launches the worker.
func (b *Bus) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run(ctx)
}

// Publish queues e, stamping the time if unset. When the buffer is full the
// event is dropped and counted.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case b.ch <- e:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns how many events did not fit in the buffer.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close stops accepting events, drains the buffer and waits for the worker.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()

	b.wg.Wait()
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bus) run(ctx context.Context) {
	defer b.wg.Done()
	for e := range b.ch {
		for _, s := range b.sinks {
			if err := s.Handle(ctx, e); err != nil {
				b.logger.Warn("Event sink failed",
					logger.String("sink", s.Name()),
					logger.String("event", string(e.Type)),
					logger.Error(err))
			}
		}
	}
}
