package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/airport-sim/internal/api"
	"github.com/yegors/airport-sim/internal/config"
	"github.com/yegors/airport-sim/internal/display"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/internal/simulation"
	"github.com/yegors/airport-sim/internal/storage/sqlite"
	"github.com/yegors/airport-sim/internal/websocket"
	"github.com/yegors/airport-sim/pkg/logger"
)

var (
	Version = "dev"
)

// The status panel is redrawn every panelEvery frames
const panelEvery = 5

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, usedPath, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal panel owns the screen, so logs go to the file only
	log, err := logger.New(logger.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		File:          cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxBackups:    cfg.Logging.MaxBackups,
		MaxAgeDays:    cfg.Logging.MaxAgeDays,
		DisableStdout: cfg.Input.Keyboard,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if usedPath == "" {
		usedPath = "built-in defaults"
	}
	log.Info("Starting airport simulation",
		logger.String("version", Version),
		logger.String("config", usedPath),
	)

	if err := run(cfg, log); err != nil {
		log.Error("Airport simulation failed", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Airport simulation fully stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event sinks
	bus := events.NewBus(log, cfg.Events.BufferSize)

	var flightLog *sqlite.FlightLog
	if cfg.Storage.Enabled {
		fl, err := sqlite.NewFlightLog(cfg.Storage.SQLitePath, log)
		if err != nil {
			return fmt.Errorf("failed to open flight log: %w", err)
		}
		defer fl.Close()
		flightLog = fl
		bus.AddSink(flightLog)
		log.Info("Using SQLite flight log", logger.String("path", cfg.Storage.SQLitePath))
	}

	if cfg.Events.NATSURL != "" {
		natsSink, err := events.ConnectNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, log)
		if err != nil {
			// Events still reach the other sinks
			log.Warn("NATS publishing disabled", logger.Error(err))
		} else {
			defer natsSink.Close()
			bus.AddSink(natsSink)
		}
	}

	var wsServer *websocket.Server
	if cfg.Server.Enabled {
		wsServer = websocket.NewServer(log, cfg.Server.FrameEvery)
		bus.AddSink(wsServer)
	}

	// Sinks outlive the signal context so the last events are flushed
	bus.Start(context.Background())
	defer bus.Close()

	// Simulation
	sim, err := simulation.NewService(cfg.Simulation, log, simulation.WithEvents(bus))
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	sim.SetDisplayToggles(cfg.Display.ShowTrails, cfg.Display.ShowWaypoints)

	dispatcher := input.NewDispatcher(sim, cfg.Input.BufferSize, log)
	renderer := display.New(sim, sim.PoolSize(), cfg.Display.TrailLength, log)

	if wsServer != nil {
		wsServer.SetSubmitter(dispatcher)
		renderer.AddSink(wsServer)
	}

	var terminal *input.Terminal
	if cfg.Input.Keyboard {
		terminal, err = input.NewTerminal(dispatcher, log)
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		defer terminal.Close()
		renderer.AddSink(display.NewTextSink(terminal, panelEvery))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if err := sim.Start(gctx); err != nil {
		return err
	}
	defer sim.Stop()

	if _, err := sim.StartTask(simulation.TaskSpec{
		Name:     "display",
		PeriodMs: cfg.Display.PeriodMs,
		Priority: sim.DisplayPriority(),
	}, renderer.Tick); err != nil {
		sim.Shutdown()
		return fmt.Errorf("failed to start display task: %w", err)
	}

	if _, err := sim.StartTask(simulation.TaskSpec{
		Name:     "input",
		PeriodMs: cfg.Input.PeriodMs,
		Priority: sim.DisplayPriority(),
	}, dispatcher.Tick); err != nil {
		sim.Shutdown()
		return fmt.Errorf("failed to start input task: %w", err)
	}

	// The exit command ends every other goroutine
	g.Go(func() error {
		select {
		case <-sim.Done():
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if terminal != nil {
		g.Go(func() error {
			terminal.Run(gctx)
			return nil
		})
	}

	if wsServer != nil {
		g.Go(func() error {
			wsServer.Run(gctx)
			return nil
		})
		startHTTP(gctx, g, cfg, api.NewRouter(sim, dispatcher, flightLog, wsServer, cfg, log).Routes(), log)
	}

	err = g.Wait()

	log.Info("Stopping simulation...",
		logger.Int64("deadline_misses", sim.TotalMisses()),
		logger.Uint64("events_dropped", bus.Dropped()))
	return err
}

// startHTTP serves handler on every configured port until ctx is done
func startHTTP(ctx context.Context, g *errgroup.Group, cfg *config.Config, handler http.Handler, log *logger.Logger) {
	allPorts := append([]int{cfg.Server.Port}, cfg.Server.AdditionalPorts...)
	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}

		g.Go(func() error {
			log.Info("Starting HTTP server", logger.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server on %s: %w", server.Addr, err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", server.Addr), logger.Error(err))
				return nil
			}
			log.Info("HTTP server shutdown complete", logger.String("addr", server.Addr))
			return nil
		})
	}
}
