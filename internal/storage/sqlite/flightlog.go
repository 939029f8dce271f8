package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/pkg/logger"
	_ "modernc.org/sqlite"
)

// EventRecord is a stored lifecycle event
type EventRecord struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	AirplaneID int       `json:"airplane_id"`
	Callsign   string    `json:"callsign,omitempty"`
	Status     string    `json:"status,omitempty"`
	Runway     int       `json:"runway"`
	Task       string    `json:"task,omitempty"`
	Misses     int64     `json:"misses,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FlightLog is a SQLite-based log of airplane lifecycles and deadline misses
type FlightLog struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFlightLog opens (or creates) the flight log database
func NewFlightLog(dbPath string, log *logger.Logger) (*FlightLog, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", pragma, err)
		}
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &FlightLog{db: db, logger: storageLogger}, nil
}

// Close closes the database connection
func (s *FlightLog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Debug("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			airplane_id INTEGER NOT NULL,
			callsign TEXT,
			status TEXT,
			runway INTEGER NOT NULL DEFAULT -1,
			task TEXT,
			misses INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			timestamp TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_events table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_flight_events_airplane ON flight_events(airplane_id)",
		"CREATE INDEX IF NOT EXISTS idx_flight_events_callsign ON flight_events(callsign)",
		"CREATE INDEX IF NOT EXISTS idx_flight_events_type ON flight_events(type)",
	} {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// RecordEvent inserts one lifecycle event
func (s *FlightLog) RecordEvent(ctx context.Context, e events.Event) error {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flight_events (type, airplane_id, callsign, status, runway, task, misses, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(e.Type), e.AirplaneID, e.Callsign, e.Status, e.Runway, e.Task, e.Misses, e.Message,
		ts.UTC().Format(time.RFC3339Nano))

	if err != nil {
		s.logger.Error("Failed to insert flight event", logger.Error(err),
			logger.String("type", string(e.Type)), logger.Int("airplane_id", e.AirplaneID))
		return fmt.Errorf("failed to insert flight event: %w", err)
	}
	return nil
}

// Name and Handle make the flight log an event sink
func (s *FlightLog) Name() string { return "sqlite" }

func (s *FlightLog) Handle(ctx context.Context, e events.Event) error {
	return s.RecordEvent(ctx, e)
}

// History returns the newest events of a pool slot, newest first. Slots are
// reused, so the history spans every airplane that flew in the slot.
func (s *FlightLog) History(ctx context.Context, airplaneID, limit int) ([]EventRecord, error) {
	return s.query(ctx, `
		SELECT id, type, airplane_id, callsign, status, runway, task, misses, message, timestamp
		FROM flight_events
		WHERE airplane_id = ? AND type != ?
		ORDER BY id DESC
		LIMIT ?
	`, airplaneID, string(events.DeadlineMiss), limit)
}

// HistoryByCallsign returns the newest events of one flight, newest first
func (s *FlightLog) HistoryByCallsign(ctx context.Context, callsign string, limit int) ([]EventRecord, error) {
	return s.query(ctx, `
		SELECT id, type, airplane_id, callsign, status, runway, task, misses, message, timestamp
		FROM flight_events
		WHERE callsign = ?
		ORDER BY id DESC
		LIMIT ?
	`, callsign, limit)
}

// DeadlineMisses returns the newest deadline miss records, newest first
func (s *FlightLog) DeadlineMisses(ctx context.Context, limit int) ([]EventRecord, error) {
	return s.query(ctx, `
		SELECT id, type, airplane_id, callsign, status, runway, task, misses, message, timestamp
		FROM flight_events
		WHERE type = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(events.DeadlineMiss), limit)
}

func (s *FlightLog) query(ctx context.Context, query string, args ...any) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight events: %w", err)
	}
	defer rows.Close()

	records := []EventRecord{}
	for rows.Next() {
		var r EventRecord
		var callsign, status, task, message sql.NullString
		var timestampStr string

		if err := rows.Scan(&r.ID, &r.Type, &r.AirplaneID, &callsign, &status, &r.Runway,
			&task, &r.Misses, &message, &timestampStr); err != nil {
			return nil, fmt.Errorf("failed to scan flight event row: %w", err)
		}
		r.Callsign = callsign.String
		r.Status = status.String
		r.Task = task.String
		r.Message = message.String

		// Parse timestamp
		r.Timestamp, err = time.Parse(time.RFC3339Nano, timestampStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
