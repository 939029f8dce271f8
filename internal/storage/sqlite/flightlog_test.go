package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/pkg/logger"
)

func newTestLog(t *testing.T) *FlightLog {
	t.Helper()
	fl, err := NewFlightLog(filepath.Join(t.TempDir(), "db", "airport.db"), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fl.Close() })
	return fl
}

func TestRecordAndHistory(t *testing.T) {
	fl := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	records := []events.Event{
		{Type: events.Spawned, AirplaneID: 3, Callsign: "SIM001", Status: "inbound_holding", Runway: -1},
		{Type: events.RunwayAssigned, AirplaneID: 3, Callsign: "SIM001", Status: "inbound_landing", Runway: 1},
		{Type: events.DeadlineMiss, AirplaneID: -1, Runway: -1, Task: "airplane-3", Misses: 1},
		{Type: events.Spawned, AirplaneID: 4, Callsign: "SIM002", Runway: -1},
		{Type: events.Despawned, AirplaneID: 3, Callsign: "SIM001", Runway: -1},
	}
	for i, e := range records {
		e.Time = base.Add(time.Duration(i) * time.Second)
		if err := fl.Handle(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	history, err := fl.History(ctx, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"despawned", "runway_assigned", "spawned"}
	if len(history) != len(expected) {
		t.Fatalf("got %d records, expected %d", len(history), len(expected))
	}
	for i, r := range history {
		if r.Type != expected[i] {
			t.Errorf("record %d: got %s, expected %s", i, r.Type, expected[i])
		}
	}
	if history[1].Runway != 1 || !history[1].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("got %+v", history[1])
	}

	limited, err := fl.History(ctx, 3, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("got %d records/%v, expected 1", len(limited), err)
	}

	byCallsign, err := fl.HistoryByCallsign(ctx, "SIM002", 10)
	if err != nil || len(byCallsign) != 1 || byCallsign[0].AirplaneID != 4 {
		t.Errorf("got %+v/%v", byCallsign, err)
	}

	misses, err := fl.DeadlineMisses(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(misses) != 1 || misses[0].Task != "airplane-3" || misses[0].Misses != 1 {
		t.Errorf("got %+v", misses)
	}
}

func TestEmptyHistory(t *testing.T) {
	fl := newTestLog(t)
	got, err := fl.History(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, expected empty slice", got)
	}
}
