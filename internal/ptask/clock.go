package ptask

import "time"

// Clock is the time source a Task measures activations against.
// The default implementation reads the monotonic clock carried by time.Time.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks the caller until the absolute instant t.
	SleepUntil(t time.Time)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SleepUntil recomputes the remaining interval from the absolute target on
// every call, so lateness in one period never shifts later activations.
func (systemClock) SleepUntil(t time.Time) {
	if d := time.Until(t); d > 0 {
		time.Sleep(d)
	}
}

// SystemClock returns the wall/monotonic clock of the process.
func SystemClock() Clock { return systemClock{} }

// AddMs returns t advanced by msec milliseconds.
func AddMs(t time.Time, msec int) time.Time {
	return t.Add(time.Duration(msec) * time.Millisecond)
}

// Compare returns -1, 0 or +1 when t1 is before, equal to or after t2.
// Both readings are compared on the monotonic clock when they carry one.
func Compare(t1, t2 time.Time) int {
	switch {
	case t1.After(t2):
		return 1
	case t1.Before(t2):
		return -1
	default:
		return 0
	}
}
