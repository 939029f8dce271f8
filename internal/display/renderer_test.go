package display

import (
	"strings"
	"testing"

	"github.com/yegors/airport-sim/internal/airplane"
	"github.com/yegors/airport-sim/internal/simulation"
	"github.com/yegors/airport-sim/internal/traffic"
	"github.com/yegors/airport-sim/internal/trajectory"
	"github.com/yegors/airport-sim/pkg/logger"
)

type fakeSource struct {
	planes  []airplane.Airplane
	toggles simulation.Toggles
}

func (f *fakeSource) CopyLiveAirplanes(max int) []airplane.Airplane {
	if len(f.planes) > max {
		return f.planes[:max]
	}
	return f.planes
}

func (f *fakeSource) SystemState() simulation.SystemState {
	return simulation.SystemState{
		Airplanes: len(f.planes),
		PoolSize:  30,
		Runways:   []traffic.RunwayState{{Index: 0, Name: "runway-0", Busy: true, AirplaneID: 0}},
	}
}

func (f *fakeSource) TaskStates() []simulation.TaskState {
	return []simulation.TaskState{{ID: 30, Name: "traffic", Priority: 50, Running: true}}
}

func (f *fakeSource) Toggles() simulation.Toggles { return f.toggles }
func (f *fakeSource) TotalMisses() int64          { return 2 }

type frameSink struct{ frames []*Frame }

func (s *frameSink) ShowFrame(f *Frame) { s.frames = append(s.frames, f) }

func TestTrailRing(t *testing.T) {
	tr := newTrail("SIM001", 3)
	for i := 0; i < 5; i++ {
		tr.push(Point{X: float64(i)})
	}
	got := tr.snapshot()
	if len(got) != 3 || got[0].X != 2 || got[2].X != 4 {
		t.Errorf("got %v, expected x 2..4", got)
	}
}

func TestRendererTrailsAndWaypoints(t *testing.T) {
	traj := trajectory.New("line", false, []trajectory.Waypoint{{X: 10, Y: 0, Speed: 5}})
	src := &fakeSource{
		planes:  []airplane.Airplane{{ID: 0, Callsign: "SIM001", Trajectory: traj}},
		toggles: simulation.Toggles{Trails: true},
	}
	sink := &frameSink{}
	r := New(src, 30, 4, logger.NewNop(), sink)

	for i := 0; i < 6; i++ {
		src.planes[0].X = float64(i)
		r.Tick()
	}

	f := r.Latest()
	if f == nil || f.Seq != 6 || len(sink.frames) != 6 {
		t.Fatalf("got latest %v and %d frames", f, len(sink.frames))
	}
	view := f.Airplanes[0]
	if len(view.Trail) != 4 || view.Trail[3].X != 5 {
		t.Errorf("got trail %v, expected last 4 positions", view.Trail)
	}
	if view.Next != nil {
		t.Errorf("waypoint shown with toggle off")
	}

	// Same slot, new airplane: fresh trail
	src.planes[0].Callsign = "SIM002"
	src.toggles = simulation.Toggles{Waypoints: true, Trails: true}
	r.Tick()
	view = r.Latest().Airplanes[0]
	if len(view.Trail) != 1 {
		t.Errorf("got trail of %d points for a new airplane, expected 1", len(view.Trail))
	}
	if view.Next == nil || view.Next.X != 10 {
		t.Errorf("got next waypoint %v, expected (10, 0)", view.Next)
	}

	src.planes = nil
	r.Tick()
	if len(r.trails) != 0 {
		t.Errorf("trails of departed airplanes kept")
	}
}

type lines struct{ got []string }

func (l *lines) SetLines(s []string) { l.got = s }

func TestTextSink(t *testing.T) {
	out := &lines{}
	sink := NewTextSink(out, 2)
	f := &Frame{
		Seq:       1,
		System:    simulation.SystemState{Airplanes: 1, PoolSize: 30, Runways: []traffic.RunwayState{{Name: "runway-0"}}},
		Airplanes: []AirplaneView{{Callsign: "SIM001", Status: "inbound_holding"}},
	}
	sink.ShowFrame(f)
	if out.got != nil {
		t.Errorf("frame 1 drawn with every=2")
	}
	f.Seq = 2
	sink.ShowFrame(f)
	text := strings.Join(out.got, "\n")
	for _, want := range []string{"Airplanes   1 / 30", "runway-0    FREE", "SIM001"} {
		if !strings.Contains(text, want) {
			t.Errorf("status box missing %q:\n%s", want, text)
		}
	}
}
