package trajectory

import "fmt"

// Holding pattern
const (
	HoldingSize   = 30
	HoldingRadius = 60.0
	HoldingArm    = 100.0
	HoldingX      = -180.0
	HoldingY      = 180.0
	HoldingSpeed  = 50.0
)

// Ground
const (
	TerminalX     = -190.0
	TerminalY     = -238.0
	TerminalSpeed = 0.0
	TaxiSpeed     = 10.0
	TakeoffSpeed  = 50.0
	LandingSpeed  = 5.0
)

// Runway is one landing strip with its approach and departure procedures.
type Runway struct {
	Name    string
	Landing *Trajectory
	Takeoff *Trajectory
}

// Set groups every trajectory of the airport.
type Set struct {
	Holding  *Trajectory
	Terminal *Trajectory
	Runways  []Runway
}

// ByName looks a trajectory up, for presentation clients.
func (s *Set) ByName(name string) (*Trajectory, bool) {
	for _, t := range s.All() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// All lists every trajectory of the set.
func (s *Set) All() []*Trajectory {
	all := []*Trajectory{s.Holding, s.Terminal}
	for _, r := range s.Runways {
		all = append(all, r.Landing, r.Takeoff)
	}
	return all
}

type runwayLayout struct {
	landingSize          int
	landingStartX        float64
	landingEndX          float64
	landingY             float64
	takeoffXs, takeoffYs []float64
	taxiPoints           int // leading control points flown at taxi speed
}

var layouts = []runwayLayout{
	{
		landingSize:   15,
		landingStartX: -330, landingEndX: 100, landingY: -140,
		takeoffXs:  []float64{TerminalX, -190, -165, -140, -110, -110, -100, -70, 0, 100, 280, 350},
		takeoffYs:  []float64{TerminalY, -220, -190, -190, -160, -150, -140, -140, -140, -140, -140, -350},
		taxiPoints: 8,
	},
	{
		landingSize:   10,
		landingStartX: -330, landingEndX: 100, landingY: -80,
		takeoffXs:  []float64{TerminalX, -190, -165, -160, -160, -145, -125, -110, -100, -70, 0, 100, 280, 350},
		takeoffYs:  []float64{TerminalY, -220, -190, -180, -125, -110, -110, -95, -80, -80, -80, -80, -80, 100},
		taxiPoints: 10,
	},
}

// MaxRunways is the number of runways the airport layout defines.
var MaxRunways = len(layouts)

// Airport builds the trajectory set for the first n runways of the layout.
func Airport(n int) (*Set, error) {
	if n <= 0 || n > len(layouts) {
		return nil, fmt.Errorf("airport defines %d runways, %d requested", len(layouts), n)
	}

	set := &Set{
		Holding:  Racetrack("holding", HoldingX, HoldingY, HoldingRadius, HoldingArm, HoldingSize, HoldingSpeed),
		Terminal: SinglePoint("terminal", TerminalX, TerminalY, TerminalSpeed),
	}

	for i, l := range layouts[:n] {
		speeds := make([]float64, len(l.takeoffXs))
		for j := range speeds {
			if j < l.taxiPoints {
				speeds[j] = TaxiSpeed
			} else {
				speeds[j] = TakeoffSpeed
			}
		}
		set.Runways = append(set.Runways, Runway{
			Name: fmt.Sprintf("runway-%d", i),
			Landing: Line(fmt.Sprintf("runway-%d-landing", i),
				l.landingStartX, l.landingY, l.landingEndX, l.landingY,
				HoldingSpeed, LandingSpeed, l.landingSize),
			Takeoff: Path(fmt.Sprintf("runway-%d-takeoff", i), l.takeoffXs, l.takeoffYs, speeds),
		})
	}
	return set, nil
}
