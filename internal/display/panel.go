package display

import (
	"fmt"
	"sort"
)

// LineSetter shows lines of text, like the terminal panel.
type LineSetter interface {
	SetLines(lines []string)
}

// TextSink formats frames as the status box.
type TextSink struct {
	out   LineSetter
	every uint64
}

// NewTextSink redraws out every n frames.
func NewTextSink(out LineSetter, every int) *TextSink {
	if every <= 0 {
		every = 1
	}
	return &TextSink{out: out, every: uint64(every)}
}

func (t *TextSink) ShowFrame(f *Frame) {
	if f.Seq%t.every != 0 {
		return
	}
	t.out.SetLines(StatusLines(f))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// StatusLines renders the status box of a frame.
func StatusLines(f *Frame) []string {
	lines := []string{
		fmt.Sprintf("Airplanes   %d / %d", f.System.Airplanes, f.System.PoolSize),
		fmt.Sprintf("Queued      %d", len(f.System.Queued)),
	}
	for _, r := range f.System.Runways {
		state := "FREE"
		if r.Busy {
			state = fmt.Sprintf("BUSY  #%d", r.AirplaneID)
		}
		lines = append(lines, fmt.Sprintf("%-11s %s", r.Name, state))
	}
	lines = append(lines,
		fmt.Sprintf("Trails %s  Waypoints %s  Random spawn %s",
			onOff(f.Toggles.Trails), onOff(f.Toggles.Waypoints), onOff(f.Toggles.AutoSpawn)),
		fmt.Sprintf("Deadline misses %d  Frame %d", f.TotalMisses, f.Seq),
		"",
		fmt.Sprintf("%-14s %6s %4s %7s  %s", "TASK", "PERIOD", "PRIO", "MISSES", "STATE"),
	)
	for _, t := range f.Tasks {
		state := "idle"
		if t.Running {
			state = "running"
		}
		lines = append(lines, fmt.Sprintf("%-14s %6s %4d %7d  %s", t.Name, t.Period, t.Priority, t.Misses, state))
	}

	planes := append([]AirplaneView(nil), f.Airplanes...)
	sort.Slice(planes, func(i, j int) bool { return planes[i].ID < planes[j].ID })
	lines = append(lines, "", fmt.Sprintf("%-8s %-17s %8s %8s %6s", "CALL", "STATUS", "X", "Y", "SPEED"))
	for _, a := range planes {
		lines = append(lines, fmt.Sprintf("%-8s %-17s %8.1f %8.1f %6.1f", a.Callsign, a.Status, a.X, a.Y, a.Speed))
	}
	return lines
}
