package airplane

import (
	"math"

	"github.com/yegors/airport-sim/internal/trajectory"
)

// Params tunes the control law.
type Params struct {
	OmegaGain       float64 // turn rate per radian of heading error
	SpeedGain       float64 // acceleration per m/s of speed error
	MinDistance     float64 // waypoint reached, airborne
	TaxiMinDistance float64 // waypoint reached, on the ground
	TaxiSpeed       float64 // waypoints at or below this speed are ground targets
	SpeedThreshold  float64 // below this the airplane cannot turn
	Dt              float64 // integration step, seconds
}

// DefaultParams returns the gains and thresholds the airport is tuned for.
func DefaultParams() Params {
	return Params{
		OmegaGain:       2.0,
		SpeedGain:       1.0,
		MinDistance:     20.0,
		TaxiMinDistance: 5.0,
		TaxiSpeed:       trajectory.TaxiSpeed,
		SpeedThreshold:  0.01,
		Dt:              0.020,
	}
}

// WrapAngle maps angle into [-π, π).
func WrapAngle(angle float64) float64 {
	k := math.Ceil(-angle/(2*math.Pi) - 0.5)
	return angle + 2*math.Pi*k
}

// Distance is the euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}

// Commands computes acceleration and turn rate towards wp.
func Commands(a Airplane, wp trajectory.Waypoint, p Params) (accel, omega float64) {
	desired := math.Atan2(wp.Y-a.Y, wp.X-a.X)
	omega = p.OmegaGain * WrapAngle(desired-a.Heading)
	accel = p.SpeedGain * (wp.Speed - a.Speed)

	if a.Speed < p.SpeedThreshold {
		omega = 0
	}
	return accel, omega
}

// Threshold returns the distance under which wp counts as reached.
func (p Params) Threshold(status Status, wp trajectory.Waypoint) float64 {
	if !status.Inbound() && wp.Speed <= p.TaxiSpeed {
		return p.TaxiMinDistance
	}
	return p.MinDistance
}

// Step advances the airplane by one control period. It only touches its
// argument and returns the updated copy.
func Step(a Airplane, p Params) Airplane {
	wp, ok := a.Trajectory.Point(a.TrajIndex)

	var accel, omega float64
	if ok {
		accel, omega = Commands(a, wp, p)
	}

	// Position moves with the speed of the previous tick
	speed := a.Speed
	a.X += speed * math.Cos(a.Heading) * p.Dt
	a.Y += speed * math.Sin(a.Heading) * p.Dt
	a.Heading += WrapAngle(omega * p.Dt)
	a.Speed += accel * p.Dt

	if !ok {
		a.TrajFinished = true
		return a
	}
	if Distance(a.X, a.Y, wp.X, wp.Y) < p.Threshold(a.Status, wp) {
		a.TrajIndex++
	}
	return a
}
