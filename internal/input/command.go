// Package input turns user actions (keys, API calls) into simulation
// commands and feeds them to the simulation from a periodic input task.
package input

import (
	"errors"
	"fmt"
	"strings"
)

// Command is one user action.
type Command int

const (
	SpawnInbound Command = iota + 1
	SpawnOutbound
	ToggleTrails
	ToggleWaypoints
	ToggleAutoSpawn
	Exit
)

var commandNames = map[Command]string{
	SpawnInbound:    "spawn_inbound",
	SpawnOutbound:   "spawn_outbound",
	ToggleTrails:    "toggle_trails",
	ToggleWaypoints: "toggle_waypoints",
	ToggleAutoSpawn: "toggle_auto_spawn",
	Exit:            "exit",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Commands lists every command in declaration order.
func Commands() []Command {
	return []Command{SpawnInbound, SpawnOutbound, ToggleTrails, ToggleWaypoints, ToggleAutoSpawn, Exit}
}

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand maps a command name, as used by the HTTP API, to a Command.
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// KeyCommand maps a key to a command. Keys are case-insensitive.
func KeyCommand(r rune) (Command, bool) {
	switch r {
	case 'i', 'I':
		return SpawnInbound, true
	case 'o', 'O':
		return SpawnOutbound, true
	case 't', 'T':
		return ToggleTrails, true
	case 'w', 'W':
		return ToggleWaypoints, true
	case 'r', 'R':
		return ToggleAutoSpawn, true
	case 'q', 'Q':
		return Exit, true
	}
	return 0, false
}
