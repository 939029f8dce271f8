package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/airport-sim/internal/config"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/internal/simulation"
	"github.com/yegors/airport-sim/internal/storage/sqlite"
	"github.com/yegors/airport-sim/internal/websocket"
	"github.com/yegors/airport-sim/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(sim *simulation.Service, commands input.Submitter, flightLog *sqlite.FlightLog, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(sim, commands, flightLog, wsServer, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Airplane routes
		router.Get("/airplanes", r.handler.GetAllAirplanes)
		router.Get("/airplanes/{id}", r.handler.GetAirplane)

		// Airport state
		router.Get("/state", r.handler.GetState)
		router.Get("/tasks", r.handler.GetTasks)
		router.Get("/queue", r.handler.GetQueue)
		router.Get("/trajectories", r.handler.GetTrajectories)

		// Commands
		router.Get("/commands", r.handler.GetCommands)
		router.Post("/commands/{command}", r.handler.PostCommand)

		// Flight log
		router.Get("/history/{id}", r.handler.GetHistory)
		router.Get("/deadline-misses", r.handler.GetDeadlineMisses)

		// WebSocket route
		router.Get("/ws", r.handler.HandleWebSocket)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	if r.config.Server.StaticFilesDir != "" {
		r.logger.Info("Serving viewer", logger.String("dir", r.config.Server.StaticFilesDir))
		router.Handle("/*", NewViewerHandler(r.config.Server.StaticFilesDir, r.logger))
	}

	return router
}
