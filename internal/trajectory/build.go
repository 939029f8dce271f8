package trajectory

import (
	"fmt"
	"math"
)

// LinearInterpolate returns the index-th of n evenly spaced samples starting
// at start and stepping towards end; the last sample stops one step short of
// end. index must be in [0, n).
func LinearInterpolate(start, end float64, n, index int) float64 {
	if n <= 0 || index < 0 || index >= n {
		panic(fmt.Sprintf("linear interpolation index %d out of range [0, %d)", index, n))
	}
	step := 1.0 / float64(n)
	return start + step*float64(index)*(end-start)
}

// Racetrack builds a closed holding pattern: a circle of the given radius
// split at the vertical diameter and pulled apart by arm on each side,
// centred on (cx, cy). Points are flown at a constant speed.
func Racetrack(name string, cx, cy, radius, arm float64, n int, speed float64) *Trajectory {
	points := make([]Waypoint, n)
	step := 2 * math.Pi / float64(n)
	s := 0.0
	for i := range points {
		x := radius * math.Cos(s)
		if s < math.Pi/2 || s >= 3*math.Pi/2 {
			x += arm
		} else {
			x -= arm
		}
		points[i] = Waypoint{
			X:       x + cx,
			Y:       radius*math.Sin(s) + cy,
			Heading: s + math.Pi,
			Speed:   speed,
		}
		s += step
	}
	return New(name, true, points)
}

// Line samples n points from (x0, y0) towards (x1, y1), with the target
// speed interpolated from v0 towards v1.
func Line(name string, x0, y0, x1, y1, v0, v1 float64, n int) *Trajectory {
	heading := math.Atan2(y1-y0, x1-x0)
	points := make([]Waypoint, n)
	for i := range points {
		points[i] = Waypoint{
			X:       LinearInterpolate(x0, x1, n, i),
			Y:       LinearInterpolate(y0, y1, n, i),
			Heading: heading,
			Speed:   LinearInterpolate(v0, v1, n, i),
		}
	}
	return New(name, false, points)
}

// Path joins named control points. Each waypoint is headed towards its
// successor; the last keeps the heading of the final leg.
func Path(name string, xs, ys, speeds []float64) *Trajectory {
	if len(xs) != len(ys) || len(xs) != len(speeds) {
		panic(fmt.Sprintf("trajectory %s: control point arrays differ in length", name))
	}
	points := make([]Waypoint, len(xs))
	heading := 0.0
	for i := range points {
		if i+1 < len(xs) {
			heading = math.Atan2(ys[i+1]-ys[i], xs[i+1]-xs[i])
		}
		points[i] = Waypoint{X: xs[i], Y: ys[i], Heading: heading, Speed: speeds[i]}
	}
	return New(name, false, points)
}

// SinglePoint builds a single-waypoint finite trajectory.
func SinglePoint(name string, x, y, speed float64) *Trajectory {
	return New(name, false, []Waypoint{{X: x, Y: y, Speed: speed}})
}
