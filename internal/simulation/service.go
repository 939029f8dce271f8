// Package simulation is the airport context: it owns the airplane pool, the
// runway queue, the trajectories and the flags, and runs the periodic tasks
// that move everything (one task per airplane, the traffic controller and
// the random spawn generator).
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/config"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/pool"
	"github.com/yegors/airport-sim/internal/ptask"
	"github.com/yegors/airport-sim/internal/queue"
	"github.com/yegors/airport-sim/internal/traffic"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/pkg/logger"
)

var (
	ErrPoolExhausted = errors.New("no free airplane slot")
	ErrShuttingDown  = errors.New("simulation shutting down")
)

// Service is the simulation context. It is built once, started once and
// stopped once.
type Service struct {
	cfg      config.SimulationConfig
	params   airplane.Params
	policy   ptask.Policy
	taskOpts []ptask.Option
	logger   *logger.Logger
	events   events.Publisher

	set     *trajectory.Set
	pool    *pool.Pool
	queue   *queue.Queue[pool.Handle]
	traffic *traffic.Controller

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup

	trails    atomic.Bool
	waypoints atomic.Bool
	autoSpawn atomic.Bool

	stateMu sync.Mutex
	system  SystemState

	tasksMu       sync.Mutex
	tasks         map[int]*ptask.Task
	retiredMisses int64
	nextTaskID    int

	rngMu    sync.Mutex
	rng      *rand.Rand
	callsign int
}

// Option customises a Service.
type Option func(*Service)

// WithEvents sends lifecycle events to p.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithTaskOptions applies opts to every task the service creates.
func WithTaskOptions(opts ...ptask.Option) Option {
	return func(s *Service) { s.taskOpts = append(s.taskOpts, opts...) }
}

// NewService builds the simulation context from validated config.
func NewService(cfg config.SimulationConfig, log *logger.Logger, opts ...Option) (*Service, error) {
	set, err := trajectory.Airport(cfg.Runways)
	if err != nil {
		return nil, err
	}
	policy, err := ptask.ParsePolicy(cfg.Scheduling)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Service{
		cfg: cfg,
		params: airplane.Params{
			OmegaGain:       cfg.OmegaGain,
			SpeedGain:       cfg.SpeedGain,
			MinDistance:     cfg.MinDistance,
			TaxiMinDistance: cfg.TaxiMinDistance,
			TaxiSpeed:       trajectory.TaxiSpeed,
			SpeedThreshold:  cfg.SpeedThreshold,
			Dt:              cfg.Dt,
		},
		policy:     policy,
		logger:     log.Named("simulation"),
		events:     events.Nop{},
		set:        set,
		pool:       pool.New(cfg.PoolSize),
		queue:      queue.New[pool.Handle](cfg.PoolSize + 1),
		done:       make(chan struct{}),
		tasks:      make(map[int]*ptask.Task),
		nextTaskID: cfg.PoolSize,
		rng:        rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.autoSpawn.Store(cfg.AutoSpawn)

	s.traffic = traffic.New(s.pool, s.queue, set.Runways, log,
		traffic.WithEvents(s.events),
		traffic.WithStatePublisher(s.setRunways))
	s.system.Runways = s.traffic.State()

	return s, nil
}

// Start launches the traffic controller and the random spawn generator.
// Cancelling ctx shuts the simulation down.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting simulation",
		logger.Int("pool_size", s.pool.Cap()),
		logger.Int("runways", len(s.set.Runways)),
		logger.String("scheduling", s.policy.String()))

	if _, err := s.StartTask(TaskSpec{
		Name:       "traffic",
		PeriodMs:   s.cfg.TrafficPeriodMs,
		DeadlineMs: s.cfg.TrafficDeadlineMs,
		Priority:   s.TrafficPriority(),
	}, func() { s.traffic.Tick() }); err != nil {
		return fmt.Errorf("failed to start traffic controller: %w", err)
	}

	// Degraded mode without the generator; manual spawns still work
	if _, err := s.StartTask(TaskSpec{
		Name:     "spawner",
		PeriodMs: s.cfg.SpawnerPeriodMs,
		Priority: s.DisplayPriority(),
	}, s.spawnRandom); err != nil {
		s.logger.Error("Random spawn generator not started", logger.Error(err))
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.done:
		}
	}()
	return nil
}

// Shutdown raises the global stop flag. Every task notices it at the top of
// its next period.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutdown requested")
		s.shutdown.Store(true)
		close(s.done)
	})
}

// Done is closed once shutdown has been requested.
func (s *Service) Done() <-chan struct{} { return s.done }

// ShuttingDown reports whether shutdown has been requested.
func (s *Service) ShuttingDown() bool { return s.shutdown.Load() }

// Wait blocks until every task has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Stop requests shutdown and waits for the tasks.
func (s *Service) Stop() {
	s.Shutdown()
	s.Wait()

	free, size := s.pool.Free(), s.pool.Cap()
	if free != size {
		s.logger.Error("Airplane slots leaked at shutdown", logger.Int("free", free), logger.Int("size", size))
		return
	}
	s.logger.Info("Simulation stopped")
}

// Priorities of the task classes: traffic above airplanes above display and input.
func (s *Service) TrafficPriority() int  { return s.cfg.BasePriority }
func (s *Service) AirplanePriority() int { return s.cfg.BasePriority - 1 }
func (s *Service) DisplayPriority() int  { return s.cfg.BasePriority - 2 }

// Trajectories returns the airport trajectory set.
func (s *Service) Trajectories() *trajectory.Set { return s.set }

// Params returns the control law settings.
func (s *Service) Params() airplane.Params { return s.params }
