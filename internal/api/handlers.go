package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/config"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/internal/simulation"
	"github.com/yegors/airport-sim/internal/storage/sqlite"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/internal/websocket"
	"github.com/yegors/airport-sim/pkg/logger"
)

// Handler contains the API handlers. flightLog and wsServer may be nil.
type Handler struct {
	simulation *simulation.Service
	commands   input.Submitter
	flightLog  *sqlite.FlightLog
	wsServer   *websocket.Server
	config     *config.Config
	logger     *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(sim *simulation.Service, commands input.Submitter, flightLog *sqlite.FlightLog, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		simulation: sim,
		commands:   commands,
		flightLog:  flightLog,
		wsServer:   wsServer,
		config:     cfg,
		logger:     log.Named("api-handler"),
	}
}

// airplaneResponse adds the trajectory name to an airplane
type airplaneResponse struct {
	airplane.Airplane
	Trajectory string `json:"trajectory"`
}

func newAirplaneResponse(a airplane.Airplane) airplaneResponse {
	return airplaneResponse{Airplane: a, Trajectory: a.TrajectoryName()}
}

// GetAllAirplanes returns every live airplane
func (h *Handler) GetAllAirplanes(w http.ResponseWriter, r *http.Request) {
	planes := h.simulation.CopyLiveAirplanes(h.simulation.PoolSize())

	response := make([]airplaneResponse, 0, len(planes))
	for _, a := range planes {
		response = append(response, newAirplaneResponse(a))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":     len(response),
		"airplanes": response,
	})
}

// GetAirplane returns one live airplane by slot id
func (h *Handler) GetAirplane(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid airplane ID", http.StatusBadRequest)
		return
	}

	a, ok := h.simulation.Airplane(id)
	if !ok {
		http.Error(w, "Airplane not found", http.StatusNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, newAirplaneResponse(a))
}

// GetState returns the airport state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"system":       h.simulation.SystemState(),
		"toggles":      h.simulation.Toggles(),
		"total_misses": h.simulation.TotalMisses(),
	})
}

// GetTasks returns the periodic tasks
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.simulation.TaskStates()
	WriteJSON(w, http.StatusOK, map[string]any{
		"count":        len(tasks),
		"tasks":        tasks,
		"total_misses": h.simulation.TotalMisses(),
	})
}

// GetQueue returns the airplanes waiting for a runway, head first
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	queued := h.simulation.SystemState().Queued
	WriteJSON(w, http.StatusOK, map[string]any{
		"count":  len(queued),
		"queued": queued,
	})
}

type trajectoryResponse struct {
	Name      string                `json:"name"`
	Cyclic    bool                  `json:"cyclic"`
	Waypoints []trajectory.Waypoint `json:"waypoints"`
}

// GetTrajectories returns the airport trajectories
func (h *Handler) GetTrajectories(w http.ResponseWriter, r *http.Request) {
	all := h.simulation.Trajectories().All()
	response := make([]trajectoryResponse, 0, len(all))
	for _, t := range all {
		response = append(response, trajectoryResponse{
			Name:      t.Name(),
			Cyclic:    t.IsCyclic(),
			Waypoints: t.Waypoints(),
		})
	}
	WriteJSON(w, http.StatusOK, response)
}

// GetCommands lists the accepted command names
func (h *Handler) GetCommands(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	for _, c := range input.Commands() {
		names = append(names, c.String())
	}
	WriteJSON(w, http.StatusOK, names)
}

// PostCommand hands a command to the input task
func (h *Handler) PostCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")
	cmd, err := input.ParseCommand(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.simulation.ShuttingDown() {
		http.Error(w, "Simulation is shutting down", http.StatusServiceUnavailable)
		return
	}

	if err := h.commands.Submit(cmd); err != nil {
		if errors.Is(err, input.ErrBusy) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		h.logger.Error("Failed to submit command", logger.Error(err), logger.String("command", name))
		http.Error(w, "Failed to submit command", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Command accepted", logger.String("command", cmd.String()))
	WriteJSON(w, http.StatusAccepted, map[string]any{
		"command": cmd.String(),
		"status":  "queued",
	})
}

func (h *Handler) historyLimit(r *http.Request) int {
	limit := h.config.Storage.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	return limit
}

// GetHistory returns the recorded events of a slot id or a callsign
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.flightLog == nil {
		http.Error(w, "Flight log disabled", http.StatusServiceUnavailable)
		return
	}

	key := chi.URLParam(r, "id")
	limit := h.historyLimit(r)

	var records []sqlite.EventRecord
	var err error
	if id, convErr := strconv.Atoi(key); convErr == nil {
		records, err = h.flightLog.History(r.Context(), id, limit)
	} else {
		records, err = h.flightLog.HistoryByCallsign(r.Context(), key, limit)
	}
	if err != nil {
		h.logger.Error("Failed to read flight history", logger.Error(err), logger.String("key", key))
		http.Error(w, "Failed to read flight history", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"events": records,
	})
}

// GetDeadlineMisses returns the recorded deadline misses
func (h *Handler) GetDeadlineMisses(w http.ResponseWriter, r *http.Request) {
	if h.flightLog == nil {
		http.Error(w, "Flight log disabled", http.StatusServiceUnavailable)
		return
	}

	records, err := h.flightLog.DeadlineMisses(r.Context(), h.historyLimit(r))
	if err != nil {
		h.logger.Error("Failed to read deadline misses", logger.Error(err))
		http.Error(w, "Failed to read deadline misses", http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"misses": records,
	})
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.simulation.ShuttingDown() {
		status = "shutting_down"
		code = http.StatusServiceUnavailable
	}

	response := map[string]any{
		"status":       status,
		"airplanes":    h.simulation.SystemState().Airplanes,
		"total_misses": h.simulation.TotalMisses(),
	}
	if h.wsServer != nil {
		response["viewers"] = h.wsServer.ClientCount()
	}
	WriteJSON(w, code, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	sim := h.config.Simulation
	publicConfig := map[string]any{
		"simulation": map[string]any{
			"pool_size":          sim.PoolSize,
			"runways":            sim.Runways,
			"scheduling":         sim.Scheduling,
			"airplane_period_ms": sim.AirplanePeriodMs,
			"traffic_period_ms":  sim.TrafficPeriodMs,
			"base_priority":      sim.BasePriority,
			"dt":                 sim.Dt,
			"inbound_area":       sim.InboundArea,
			"outbound_area":      sim.OutboundArea,
		},
		"display": map[string]any{
			"period_ms":      h.config.Display.PeriodMs,
			"trail_length":   h.config.Display.TrailLength,
			"ws_frame_every": h.config.Server.FrameEvery,
		},
		"storage": map[string]any{
			"enabled":       h.config.Storage.Enabled,
			"history_limit": h.config.Storage.HistoryLimit,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// HandleWebSocket hands the connection to the viewer hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		http.Error(w, "WebSocket disabled", http.StatusServiceUnavailable)
		return
	}
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
