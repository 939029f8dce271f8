package airplane

import (
	"encoding/json"
	"testing"

	"github.com/yegors/airport-sim/internal/trajectory"
)

func TestStatusString(t *testing.T) {
	if got := OutboundTakeoff.String(); got != "outbound_takeoff" {
		t.Errorf("got %q, expected outbound_takeoff", got)
	}
	if got := Status(42).String(); got != "status(42)" {
		t.Errorf("got %q, expected status(42)", got)
	}

	out, err := json.Marshal(struct{ S Status }{InboundLanding})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"S":"inbound_landing"}` {
		t.Errorf("got %s", out)
	}
}

func TestSharedKeepsID(t *testing.T) {
	s := NewShared(7)
	s.Reset(Airplane{ID: 99, Callsign: "SIM001"})
	if got := s.Load(); got.ID != 7 || got.Callsign != "SIM001" {
		t.Errorf("got %+v", got)
	}
	s.Update(func(a *Airplane) { a.ID = 3 })
	if s.Load().ID != 7 || s.ID() != 7 {
		t.Errorf("slot id changed")
	}
}

func TestCommitKeepsReassignment(t *testing.T) {
	holding := trajectory.New("holding", true, []trajectory.Waypoint{{X: 1}, {X: 2}})
	landing := trajectory.New("landing", false, []trajectory.Waypoint{{X: 3}})

	s := NewShared(0)
	s.Reset(Airplane{Trajectory: holding, TrajIndex: 4, Status: InboundHolding})

	before := s.Load()
	after := before
	after.X = 12
	after.TrajIndex = 5

	// Traffic controller reassigns between copy-out and commit
	s.Update(func(a *Airplane) { a.Assign(landing, InboundLanding, 1) })

	s.Commit(before, after)
	got := s.Load()
	if got.X != 12 {
		t.Errorf("got x %v, expected kinematics written", got.X)
	}
	if got.Trajectory != landing || got.TrajIndex != 0 || got.Status != InboundLanding || got.Runway != 1 {
		t.Errorf("reassignment lost: %+v", got)
	}

	// Without interference progress is written
	before = s.Load()
	after = before
	after.TrajIndex = 1
	after.TrajFinished = true
	s.Commit(before, after)
	if got := s.Load(); got.TrajIndex != 1 || !got.TrajFinished {
		t.Errorf("progress not written: %+v", got)
	}
}

func TestCommitReportsKill(t *testing.T) {
	s := NewShared(1)
	a := s.Load()
	if s.Commit(a, a) {
		t.Errorf("fresh airplane reported killed")
	}
	s.Update(func(a *Airplane) { a.Kill = true })
	if !s.Commit(a, a) || !s.Killed() {
		t.Errorf("kill flag not reported")
	}
}
