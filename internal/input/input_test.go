package input

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/yegors/airport-sim/pkg/logger"
)

type recorder struct {
	got []Command
	err error
}

func (r *recorder) Execute(cmd Command) error {
	r.got = append(r.got, cmd)
	return r.err
}

func TestParseCommand(t *testing.T) {
	for _, cmd := range Commands() {
		got, err := ParseCommand(cmd.String())
		if err != nil || got != cmd {
			t.Errorf("%v: got %v/%v", cmd, got, err)
		}
	}
	if got, err := ParseCommand(" Spawn_Inbound "); err != nil || got != SpawnInbound {
		t.Errorf("got %v/%v, expected spawn_inbound", got, err)
	}
	if _, err := ParseCommand("land_now"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("got %v, expected ErrUnknownCommand", err)
	}
}

func TestKeyCommand(t *testing.T) {
	tests := []struct {
		key      tcell.Key
		r        rune
		expected Command
		ok       bool
	}{
		{tcell.KeyRune, 'i', SpawnInbound, true},
		{tcell.KeyRune, 'O', SpawnOutbound, true},
		{tcell.KeyRune, 't', ToggleTrails, true},
		{tcell.KeyRune, 'w', ToggleWaypoints, true},
		{tcell.KeyRune, 'r', ToggleAutoSpawn, true},
		{tcell.KeyRune, 'x', 0, false},
		{tcell.KeyEscape, 0, Exit, true},
		{tcell.KeyEnter, 0, 0, false},
	}
	for _, tc := range tests {
		got, ok := keyCommand(tc.key, tc.r)
		if got != tc.expected || ok != tc.ok {
			t.Errorf("key %v %q: got %v/%v, expected %v/%v", tc.key, tc.r, got, ok, tc.expected, tc.ok)
		}
	}
}

func TestDispatcherRunsInOrder(t *testing.T) {
	rec := &recorder{err: errors.New("pool exhausted")}
	d := NewDispatcher(rec, 3, logger.NewNop())

	for _, cmd := range []Command{SpawnInbound, ToggleTrails, Exit} {
		if err := d.Submit(cmd); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Submit(SpawnOutbound); !errors.Is(err, ErrBusy) {
		t.Errorf("got %v, expected ErrBusy", err)
	}
	if d.Pending() != 3 {
		t.Errorf("got %d pending, expected 3", d.Pending())
	}

	d.Tick()
	expected := []Command{SpawnInbound, ToggleTrails, Exit}
	if len(rec.got) != len(expected) {
		t.Fatalf("got %v, expected %v", rec.got, expected)
	}
	for i := range expected {
		if rec.got[i] != expected[i] {
			t.Errorf("got %v, expected %v", rec.got, expected)
		}
	}

	d.Tick()
	if len(rec.got) != 3 {
		t.Errorf("empty tick executed commands")
	}
}
