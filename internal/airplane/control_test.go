package airplane

import (
	"math"
	"testing"

	"github.com/yegors/airport-sim/internal/trajectory"
)

func TestWrapAngleRangeAndIdempotence(t *testing.T) {
	const eps = 1e-9
	angles := []float64{0, 0.3, -0.3, 1.5, -1.5, 3, -3, 4, -4, 7.5, -7.5, 100.25, -1000.1, 12345.678}
	for _, a := range angles {
		w := WrapAngle(a)
		if w < -math.Pi-eps || w > math.Pi+eps {
			t.Errorf("WrapAngle(%v): got %v, outside [-π, π]", a, w)
		}
		if again := WrapAngle(w); math.Abs(again-w) > eps {
			t.Errorf("WrapAngle(WrapAngle(%v)): got %v, expected %v", a, again, w)
		}
		// Same direction as the input
		if math.Abs(math.Sin(w)-math.Sin(a)) > 1e-6 || math.Abs(math.Cos(w)-math.Cos(a)) > 1e-6 {
			t.Errorf("WrapAngle(%v): got %v, not equivalent", a, w)
		}
	}
}

func TestWrapAngleKnownValues(t *testing.T) {
	tests := []struct{ in, expected float64 }{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{-math.Pi / 2, -math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2 * math.Pi, 0},
	}
	for _, tc := range tests {
		if got := WrapAngle(tc.in); math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("WrapAngle(%v): got %v, expected %v", tc.in, got, tc.expected)
		}
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(0, 0, 3, 4); got != 5 {
		t.Errorf("got %v, expected 5", got)
	}
}

func TestStepConvergesToWaypoint(t *testing.T) {
	traj := trajectory.New("target", false, []trajectory.Waypoint{{X: 100, Y: 0, Speed: 15}})
	p := DefaultParams()
	a := Airplane{Trajectory: traj, Status: InboundLanding}

	prev := Distance(a.X, a.Y, 100, 0)
	advances := 0
	for i := 0; i < 2000; i++ {
		before := a.TrajIndex
		a = Step(a, p)
		if a.TrajIndex != before {
			advances++
		}
		if before == 0 {
			d := Distance(a.X, a.Y, 100, 0)
			if d > prev {
				t.Fatalf("step %d: distance grew from %v to %v", i, prev, d)
			}
			prev = d
		}
	}

	if advances != 1 {
		t.Errorf("got %d waypoint advances, expected 1", advances)
	}
	if prev >= p.MinDistance {
		t.Errorf("closest approach %v not under %v", prev, p.MinDistance)
	}
	if !a.TrajFinished {
		t.Errorf("finite trajectory not marked finished")
	}
}

func TestStepStationaryAirplaneDoesNotTurn(t *testing.T) {
	traj := trajectory.New("behind", false, []trajectory.Waypoint{{X: 0, Y: 100, Speed: 0}})
	a := Airplane{Trajectory: traj, Status: OutboundHolding}

	a = Step(a, DefaultParams())
	if a.Heading != 0 {
		t.Errorf("got heading %v, expected 0", a.Heading)
	}
	if a.X != 0 || a.Y != 0 {
		t.Errorf("stationary airplane moved to (%v, %v)", a.X, a.Y)
	}
}

func TestStepUsesPreviousSpeed(t *testing.T) {
	traj := trajectory.New("ahead", false, []trajectory.Waypoint{{X: 1000, Y: 0, Speed: 20}})
	p := DefaultParams()
	a := Airplane{Trajectory: traj, Speed: 10, Status: InboundHolding}

	a = Step(a, p)
	if math.Abs(a.X-10*p.Dt) > 1e-12 {
		t.Errorf("got x %v, expected %v", a.X, 10*p.Dt)
	}
	if expected := 10 + p.SpeedGain*10*p.Dt; math.Abs(a.Speed-expected) > 1e-12 {
		t.Errorf("got speed %v, expected %v", a.Speed, expected)
	}
}

func TestStepExhaustedTrajectory(t *testing.T) {
	traj := trajectory.New("done", false, []trajectory.Waypoint{{X: 0, Y: 0}})
	a := Airplane{Trajectory: traj, TrajIndex: 1, Speed: 5, Heading: 1}

	a = Step(a, DefaultParams())
	if !a.TrajFinished {
		t.Errorf("expected finished flag")
	}
	if a.Speed != 5 || a.Heading != 1 {
		t.Errorf("commands not zero: speed %v heading %v", a.Speed, a.Heading)
	}
}

func TestThreshold(t *testing.T) {
	p := DefaultParams()
	taxi := trajectory.Waypoint{Speed: p.TaxiSpeed}
	fast := trajectory.Waypoint{Speed: 50}

	tests := []struct {
		status   Status
		wp       trajectory.Waypoint
		expected float64
	}{
		{InboundHolding, fast, p.MinDistance},
		{InboundLanding, taxi, p.MinDistance},
		{OutboundHolding, trajectory.Waypoint{}, p.TaxiMinDistance},
		{OutboundTakeoff, taxi, p.TaxiMinDistance},
		{OutboundTakeoff, fast, p.MinDistance},
	}
	for _, tc := range tests {
		if got := p.Threshold(tc.status, tc.wp); got != tc.expected {
			t.Errorf("%v speed %v: got %v, expected %v", tc.status, tc.wp.Speed, got, tc.expected)
		}
	}
}
