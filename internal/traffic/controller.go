// Package traffic arbitrates the runways. Airplanes wait in the runway queue
// and are promoted to a free runway one at a time; a runway is freed when
// its airplane finishes the runway trajectory.
package traffic

import (
	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/pool"
	"github.com/yegors/airport-sim/internal/queue"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/pkg/logger"
)

const free pool.Handle = -1

// RunwayState is the public view of one runway.
type RunwayState struct {
	Index      int    `json:"index" msgpack:"index"`
	Name       string `json:"name" msgpack:"name"`
	Busy       bool   `json:"busy" msgpack:"busy"`
	AirplaneID int    `json:"airplane_id" msgpack:"airplane_id"`
}

// Controller owns the runway assignment table. It is not safe for
// concurrent use; one traffic task calls Tick.
type Controller struct {
	pool    *pool.Pool
	queue   *queue.Queue[pool.Handle]
	runways []trajectory.Runway

	occupant []pool.Handle

	logger  *logger.Logger
	events  events.Publisher
	publish func([]RunwayState)
}

// Option customises a Controller.
type Option func(*Controller)

// WithEvents sends runway events to p.
func WithEvents(p events.Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithStatePublisher receives the runway table after every tick.
func WithStatePublisher(fn func([]RunwayState)) Option {
	return func(c *Controller) { c.publish = fn }
}

// New returns a controller with every runway free.
func New(p *pool.Pool, q *queue.Queue[pool.Handle], runways []trajectory.Runway, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		pool:     p,
		queue:    q,
		runways:  runways,
		occupant: make([]pool.Handle, len(runways)),
		logger:   log.Named("traffic"),
		events:   events.Nop{},
	}
	for i := range c.occupant {
		c.occupant[i] = free
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick runs one control period: for each runway, free it if its airplane
// is done, then fill it from the queue. A runway freed in this tick can be
// reassigned in the same tick.
func (c *Controller) Tick() []RunwayState {
	for i := range c.runways {
		c.release(i)
		c.assign(i)
	}

	state := c.State()
	if c.publish != nil {
		c.publish(state)
	}
	return state
}

// State returns the runway table.
func (c *Controller) State() []RunwayState {
	state := make([]RunwayState, len(c.runways))
	for i, r := range c.runways {
		state[i] = RunwayState{
			Index:      i,
			Name:       r.Name,
			Busy:       c.occupant[i] != free,
			AirplaneID: int(c.occupant[i]),
		}
	}
	return state
}

func (c *Controller) release(runway int) {
	h := c.occupant[runway]
	if h == free {
		return
	}

	var done bool
	var plane airplane.Airplane
	c.pool.Slot(h).Update(func(a *airplane.Airplane) {
		if a.TrajFinished {
			a.Kill = true
			a.Runway = airplane.NoRunway
			done = true
			plane = *a
		}
	})
	if !done {
		return
	}

	c.occupant[runway] = free
	c.logger.Debug("Runway released",
		logger.String("runway", c.runways[runway].Name),
		logger.String("callsign", plane.Callsign),
		logger.Int("airplane_id", plane.ID))
	c.events.Publish(events.Event{
		Type:       events.RunwayReleased,
		AirplaneID: plane.ID,
		Callsign:   plane.Callsign,
		Status:     plane.Status.String(),
		Runway:     runway,
	})
}

func (c *Controller) assign(runway int) {
	if c.occupant[runway] != free {
		return
	}
	h, ok := c.queue.Pop()
	if !ok {
		return
	}

	r := c.runways[runway]
	var assigned bool
	var plane airplane.Airplane
	c.pool.Slot(h).Update(func(a *airplane.Airplane) {
		switch a.Status {
		case airplane.InboundHolding:
			a.Assign(r.Landing, airplane.InboundLanding, runway)
			assigned = true
		case airplane.OutboundHolding:
			a.Assign(r.Takeoff, airplane.OutboundTakeoff, runway)
			assigned = true
		}
		plane = *a
	})

	// The runway is held either way; release frees it once the airplane
	// finishes whatever trajectory it is flying
	c.occupant[runway] = h

	if !assigned {
		c.logger.Error("Unexpected airplane status on runway assignment",
			logger.String("runway", r.Name),
			logger.String("callsign", plane.Callsign),
			logger.Int("airplane_id", plane.ID),
			logger.String("status", plane.Status.String()))
		c.events.Publish(events.Event{
			Type:       events.StatusError,
			AirplaneID: plane.ID,
			Callsign:   plane.Callsign,
			Status:     plane.Status.String(),
			Runway:     runway,
			Message:    "unexpected status on runway assignment",
		})
		return
	}

	c.logger.Debug("Runway assigned",
		logger.String("runway", r.Name),
		logger.String("callsign", plane.Callsign),
		logger.Int("airplane_id", plane.ID),
		logger.String("status", plane.Status.String()))
	c.events.Publish(events.Event{
		Type:       events.RunwayAssigned,
		AirplaneID: plane.ID,
		Callsign:   plane.Callsign,
		Status:     plane.Status.String(),
		Runway:     runway,
	})
}
