package input

import (
	"errors"

	"github.com/yegors/airport-sim/pkg/logger"
)

// ErrBusy is returned when the command buffer is full.
var ErrBusy = errors.New("command buffer full")

// Executor carries out commands. The simulation implements it.
type Executor interface {
	Execute(cmd Command) error
}

// Dispatcher buffers commands from any goroutine and hands them to the
// executor from the input task, one period at a time.
type Dispatcher struct {
	commands chan Command
	exec     Executor
	logger   *logger.Logger
}

// NewDispatcher returns a dispatcher holding up to buffer pending commands.
func NewDispatcher(exec Executor, buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 32
	}
	return &Dispatcher{
		commands: make(chan Command, buffer),
		exec:     exec,
		logger:   log.Named("input"),
	}
}

// Submit queues cmd without blocking.
func (d *Dispatcher) Submit(cmd Command) error {
	select {
	case d.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// Tick executes every pending command. It is the body of the input task.
func (d *Dispatcher) Tick() {
	for {
		select {
		case cmd := <-d.commands:
			if err := d.exec.Execute(cmd); err != nil {
				// Exhaustion is backpressure, not a failure
				d.logger.Debug("Command not executed",
					logger.String("command", cmd.String()),
					logger.Error(err))
			}
		default:
			return
		}
	}
}

// Pending returns the number of buffered commands.
func (d *Dispatcher) Pending() int { return len(d.commands) }
