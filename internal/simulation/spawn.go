package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/config"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/pool"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/pkg/logger"
)

// SpawnInbound creates an airplane in the inbound area flying the holding
// pattern and queues it for landing.
func (s *Service) SpawnInbound() (airplane.Airplane, error) {
	return s.spawn(airplane.InboundHolding)
}

// SpawnOutbound creates an airplane parked at the terminal and queues it for
// takeoff.
func (s *Service) SpawnOutbound() (airplane.Airplane, error) {
	return s.spawn(airplane.OutboundHolding)
}

func (s *Service) spawn(status airplane.Status) (airplane.Airplane, error) {
	if s.shutdown.Load() {
		return airplane.Airplane{}, ErrShuttingDown
	}

	h, ok := s.pool.Acquire()
	if !ok {
		s.logger.Debug("Spawn dropped, pool exhausted", logger.String("status", status.String()))
		return airplane.Airplane{}, ErrPoolExhausted
	}

	area, speed, traj := s.cfg.InboundArea, trajectory.HoldingSpeed, s.set.Holding
	if !status.Inbound() {
		area, speed, traj = s.cfg.OutboundArea, 0, s.set.Terminal
	}
	x, y, heading, callsign := s.randomPose(area)

	slot := s.pool.Slot(h)
	slot.Reset(airplane.Airplane{
		Callsign:   callsign,
		X:          x,
		Y:          y,
		Heading:    heading,
		Speed:      speed,
		Trajectory: traj,
		Status:     status,
		Runway:     airplane.NoRunway,
	})
	s.addAirplanes(1)

	// The task exists before the airplane can be given a runway
	t, err := s.newTask(TaskSpec{
		Name:       fmt.Sprintf("airplane-%d", h),
		PeriodMs:   s.cfg.AirplanePeriodMs,
		DeadlineMs: s.cfg.AirplaneDeadlineMs,
		Priority:   s.AirplanePriority(),
	}, int(h))
	if err == nil {
		err = s.launch(t, s.flyAirplane(h))
	}
	if err != nil {
		s.pool.Release(h)
		s.addAirplanes(-1)
		return airplane.Airplane{}, err
	}

	plane := slot.Load()
	s.logger.Info("Airplane spawned",
		logger.String("callsign", plane.Callsign),
		logger.Int("airplane_id", plane.ID),
		logger.String("status", status.String()),
		logger.Float64("x", plane.X),
		logger.Float64("y", plane.Y))
	s.events.Publish(events.Event{
		Type:       events.Spawned,
		AirplaneID: plane.ID,
		Callsign:   plane.Callsign,
		Status:     status.String(),
		Runway:     -1,
	})

	if err := s.queue.Push(h); err != nil {
		// The task releases the slot once it sees the kill flag
		slot.Update(func(a *airplane.Airplane) { a.Kill = true })
		s.logger.Error("Runway queue rejected airplane", logger.String("callsign", callsign), logger.Error(err))
		return airplane.Airplane{}, err
	}
	return plane, nil
}

// randomPose samples a position in area, a heading and the next callsign.
func (s *Service) randomPose(area config.Area) (x, y, heading float64, callsign string) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	x = area.X + s.rng.Float64()*area.Width
	y = area.Y + s.rng.Float64()*area.Height
	heading = s.rng.Float64()*2*math.Pi - math.Pi
	s.callsign = s.callsign%999 + 1
	callsign = fmt.Sprintf("%s%03d", s.cfg.CallsignPrefix, s.callsign)
	return x, y, heading, callsign
}

// spawnRandom is the body of the random spawn generator.
func (s *Service) spawnRandom() {
	if !s.autoSpawn.Load() {
		return
	}

	s.rngMu.Lock()
	fire := s.rng.Float64() < s.cfg.AutoSpawnChance
	outbound := s.rng.Float64() < s.cfg.OutboundRatio
	s.rngMu.Unlock()
	if !fire {
		return
	}

	var err error
	if outbound {
		_, err = s.SpawnOutbound()
	} else {
		_, err = s.SpawnInbound()
	}
	if err != nil && !errors.Is(err, ErrPoolExhausted) && !errors.Is(err, ErrShuttingDown) {
		s.logger.Warn("Random spawn failed", logger.Error(err))
	}
}

// queuedIDs returns the airplane ids waiting for a runway, oldest first.
func queuedIDs(handles []pool.Handle) []int {
	ids := make([]int, len(handles))
	for i, h := range handles {
		ids[i] = int(h)
	}
	return ids
}
