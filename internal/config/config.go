package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/yegors/airport-sim/internal/ptask"
	"github.com/yegors/airport-sim/internal/trajectory"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP and websocket server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Storage    StorageConfig    `toml:"storage"`    // Flight log persistence settings
	Events     EventsConfig     `toml:"events"`     // Lifecycle event fan-out settings
	Simulation SimulationConfig `toml:"simulation"` // Airport, airplanes and periodic task settings
	Input      InputConfig      `toml:"input"`      // Command input settings
	Display    DisplayConfig    `toml:"display"`    // Presentation task settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Enabled            bool     `toml:"enabled"`               // Serve the HTTP API and websocket
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory with a web viewer to serve at / (empty = none)
	FrameEvery         int      `toml:"ws_frame_every"`        // Push every Nth display frame to websocket viewers
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	File       string `toml:"file"`         // Optional log file, rotated by size (always JSON)
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // Rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Days to keep rotated files
}

// StorageConfig contains flight log persistence configuration
type StorageConfig struct {
	Enabled      bool   `toml:"enabled"`       // Record lifecycle events and deadline misses in SQLite
	SQLitePath   string `toml:"sqlite_path"`   // Path of the SQLite database file
	HistoryLimit int    `toml:"history_limit"` // Maximum rows returned by the history API
}

// EventsConfig contains lifecycle event settings
type EventsConfig struct {
	BufferSize    int    `toml:"buffer_size"`    // Pending events kept before new ones are dropped
	NATSURL       string `toml:"nats_url"`       // NATS server to publish events to (empty = disabled)
	SubjectPrefix string `toml:"subject_prefix"` // Subjects are <prefix>.<event type>
}

// Area is a rectangle of the airport plane, in metres
type Area struct {
	X      float64 `toml:"x"`      // Left edge
	Y      float64 `toml:"y"`      // Bottom edge
	Width  float64 `toml:"width"`  // Extent along x
	Height float64 `toml:"height"` // Extent along y
}

// SimulationConfig contains the airport and scheduling settings
type SimulationConfig struct {
	PoolSize   int    `toml:"pool_size"`  // Maximum number of airplanes alive at once
	Runways    int    `toml:"runways"`    // Number of runways in use (1 or 2)
	Scheduling string `toml:"scheduling"` // Task scheduling class: "fifo" (needs CAP_SYS_NICE) or "none"

	// Periods and deadlines, in milliseconds. A zero deadline equals the period.
	AirplanePeriodMs   int `toml:"airplane_period_ms"`
	AirplaneDeadlineMs int `toml:"airplane_deadline_ms"`
	TrafficPeriodMs    int `toml:"traffic_period_ms"`
	TrafficDeadlineMs  int `toml:"traffic_deadline_ms"`
	SpawnerPeriodMs    int `toml:"spawner_period_ms"` // Random spawn generator period

	// Priorities. Traffic runs above airplanes, presentation and input below both.
	BasePriority int `toml:"base_priority"` // Traffic controller priority; airplanes get base-1, display and input base-2

	// Control law
	OmegaGain       float64 `toml:"omega_gain"`        // Turn rate per radian of heading error
	SpeedGain       float64 `toml:"speed_gain"`        // Acceleration per m/s of speed error
	MinDistance     float64 `toml:"min_distance"`      // Waypoint reached radius while airborne (m)
	TaxiMinDistance float64 `toml:"taxi_min_distance"` // Waypoint reached radius while taxiing (m)
	SpeedThreshold  float64 `toml:"speed_threshold"`   // Below this speed the airplane cannot turn (m/s)
	Dt              float64 `toml:"dt"`                // Integration step in seconds (0 = airplane period)

	// Spawning
	InboundArea     Area    `toml:"inbound_area"`      // Where inbound airplanes appear
	OutboundArea    Area    `toml:"outbound_area"`     // Where outbound airplanes appear
	AutoSpawn       bool    `toml:"auto_spawn"`        // Start with the random spawn generator on
	AutoSpawnChance float64 `toml:"auto_spawn_chance"` // Probability of a spawn per generator period
	OutboundRatio   float64 `toml:"outbound_ratio"`    // Share of random spawns that are outbound
	CallsignPrefix  string  `toml:"callsign_prefix"`   // Callsigns are <prefix><3 digits>
	Seed            int64   `toml:"seed"`              // Random seed (0 = time based)
}

// InputConfig contains command input settings
type InputConfig struct {
	PeriodMs   int  `toml:"period_ms"`   // Input task period
	Keyboard   bool `toml:"keyboard"`    // Read keys from the terminal (disables stdout logging)
	BufferSize int  `toml:"buffer_size"` // Commands waiting for the input task
}

// DisplayConfig contains presentation task settings
type DisplayConfig struct {
	PeriodMs      int  `toml:"period_ms"`      // Presentation task period
	TrailLength   int  `toml:"trail_length"`   // Positions remembered per airplane
	ShowTrails    bool `toml:"show_trails"`    // Initial trail toggle
	ShowWaypoints bool `toml:"show_waypoints"` // Initial next-waypoint toggle
}

// Default returns the configuration the airport runs with when no file is found
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:            true,
			Port:               8080,
			Host:               "127.0.0.1",
			CORSAllowedOrigins: []string{"*"},
			ReadTimeoutSecs:    15,
			IdleTimeoutSecs:    60,
			FrameEvery:         1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Storage: StorageConfig{
			Enabled:      false,
			SQLitePath:   "data/airport.db",
			HistoryLimit: 200,
		},
		Events: EventsConfig{
			BufferSize:    256,
			SubjectPrefix: "airport",
		},
		Simulation: SimulationConfig{
			PoolSize:         30,
			Runways:          2,
			Scheduling:       "none",
			AirplanePeriodMs: 20,
			TrafficPeriodMs:  5,
			SpawnerPeriodMs:  1000,
			BasePriority:     50,
			OmegaGain:        2.0,
			SpeedGain:        1.0,
			MinDistance:      20.0,
			TaxiMinDistance:  5.0,
			SpeedThreshold:   0.01,
			InboundArea:      Area{X: -20, Y: 0, Width: 350, Height: 350},
			OutboundArea:     Area{X: -355, Y: -305, Width: 210, Height: 50},
			AutoSpawnChance:  0.3,
			OutboundRatio:    0.5,
			CallsignPrefix:   "SIM",
		},
		Input: InputConfig{
			PeriodMs:   30,
			BufferSize: 32,
		},
		Display: DisplayConfig{
			PeriodMs:    30,
			TrailLength: 50,
			ShowTrails:  true,
		},
	}
}

// Load loads the configuration from a TOML file on top of the defaults
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in
// order of preference. With no file anywhere the defaults are returned.
func LoadWithFallback(preferredPath string) (*Config, string, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return nil, path, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			return config, path, nil
		}
	}

	// An explicitly requested file must exist
	if preferredPath != "" {
		return nil, "", fmt.Errorf("config file not found: %s", preferredPath)
	}
	return Default(), "", nil
}

// Validate checks the configuration and fills in derived defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}
	if c.Server.FrameEvery <= 0 {
		c.Server.FrameEvery = 1
	}
	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	case "":
		c.Logging.Level = "info"
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	case "":
		c.Logging.Format = "console"
	default:
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'console')", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Enabled && c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required when storage is enabled")
	}
	if c.Storage.HistoryLimit <= 0 {
		c.Storage.HistoryLimit = 200
	}

	// Validate events config
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 256
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "airport"
	}

	if err := c.ValidateSimulation(); err != nil {
		return err
	}

	// Validate input and display config
	if c.Input.PeriodMs <= 0 {
		return fmt.Errorf("invalid input period: %d ms", c.Input.PeriodMs)
	}
	if c.Input.BufferSize <= 0 {
		c.Input.BufferSize = 32
	}
	if c.Display.PeriodMs <= 0 {
		return fmt.Errorf("invalid display period: %d ms", c.Display.PeriodMs)
	}
	if c.Display.TrailLength <= 0 {
		c.Display.TrailLength = 50
	}

	return nil
}

// ValidateSimulation checks the airport and task settings
func (c *Config) ValidateSimulation() error {
	s := &c.Simulation

	if s.PoolSize <= 0 {
		return fmt.Errorf("invalid pool_size: %d (must be > 0)", s.PoolSize)
	}
	if s.Runways <= 0 || s.Runways > trajectory.MaxRunways {
		return fmt.Errorf("invalid runways: %d (the airport has %d)", s.Runways, trajectory.MaxRunways)
	}
	if _, err := ptask.ParsePolicy(s.Scheduling); err != nil {
		return err
	}

	if s.AirplanePeriodMs <= 0 || s.TrafficPeriodMs <= 0 || s.SpawnerPeriodMs <= 0 {
		return fmt.Errorf("task periods must be positive (airplane=%d traffic=%d spawner=%d)",
			s.AirplanePeriodMs, s.TrafficPeriodMs, s.SpawnerPeriodMs)
	}
	if s.AirplaneDeadlineMs == 0 {
		s.AirplaneDeadlineMs = s.AirplanePeriodMs
	}
	if s.TrafficDeadlineMs == 0 {
		s.TrafficDeadlineMs = s.TrafficPeriodMs
	}
	if s.AirplaneDeadlineMs < 0 || s.TrafficDeadlineMs < 0 {
		return fmt.Errorf("task deadlines must not be negative")
	}

	// Display and input sit two levels below the traffic controller
	if s.BasePriority-2 < ptask.MinPriority || s.BasePriority > ptask.MaxPriority {
		return fmt.Errorf("invalid base_priority: %d (must be in [%d, %d])",
			s.BasePriority, ptask.MinPriority+2, ptask.MaxPriority)
	}

	if s.OmegaGain <= 0 || s.SpeedGain <= 0 {
		return fmt.Errorf("control gains must be positive")
	}
	if s.MinDistance <= 0 || s.TaxiMinDistance <= 0 {
		return fmt.Errorf("waypoint distances must be positive")
	}
	if s.Dt == 0 {
		s.Dt = float64(s.AirplanePeriodMs) / 1000
	}
	if s.Dt < 0 {
		return fmt.Errorf("invalid dt: %v", s.Dt)
	}

	for name, a := range map[string]Area{"inbound_area": s.InboundArea, "outbound_area": s.OutboundArea} {
		if a.Width < 0 || a.Height < 0 {
			return fmt.Errorf("invalid %s: negative size", name)
		}
	}
	if s.AutoSpawnChance < 0 || s.AutoSpawnChance > 1 {
		return fmt.Errorf("invalid auto_spawn_chance: %v (must be in [0, 1])", s.AutoSpawnChance)
	}
	if s.OutboundRatio < 0 || s.OutboundRatio > 1 {
		return fmt.Errorf("invalid outbound_ratio: %v (must be in [0, 1])", s.OutboundRatio)
	}
	if s.CallsignPrefix == "" {
		s.CallsignPrefix = "SIM"
	}

	return nil
}
