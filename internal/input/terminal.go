package input

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/yegors/airport-sim/pkg/logger"
)

// Submitter accepts commands from a key source.
type Submitter interface {
	Submit(cmd Command) error
}

const helpLine = " [I] inbound  [O] outbound  [T] trails  [W] waypoints  [R] random spawn  [Esc] exit"

// Terminal owns the terminal: it turns key presses into commands and shows
// a text status panel.
type Terminal struct {
	screen tcell.Screen
	submit Submitter
	logger *logger.Logger

	mu     sync.Mutex
	lines  []string
	closed bool
}

// NewTerminal takes over the controlling terminal.
func NewTerminal(submit Submitter, log *logger.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("error creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("error initializing screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	return &Terminal{
		screen: screen,
		submit: submit,
		logger: log.Named("terminal"),
	}, nil
}

// Run reads keys until ctx is done or the screen is closed.
func (t *Terminal) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	t.draw()
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			// Screen finalized
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
			t.draw()

		case *tcell.EventKey:
			cmd, ok := keyCommand(ev.Key(), ev.Rune())
			if !ok {
				continue
			}
			if err := t.submit.Submit(cmd); err != nil {
				t.logger.Warn("Key dropped", logger.String("command", cmd.String()), logger.Error(err))
			}
		}
	}
}

// keyCommand maps a key press to a command.
func keyCommand(key tcell.Key, r rune) (Command, bool) {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Exit, true
	case tcell.KeyRune:
		return KeyCommand(r)
	}
	return 0, false
}

// SetLines replaces the panel content and redraws it.
func (t *Terminal) SetLines(lines []string) {
	t.mu.Lock()
	t.lines = append(t.lines[:0], lines...)
	t.mu.Unlock()
	t.draw()
}

func (t *Terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.screen.Clear()
	width, height := t.screen.Size()

	styleHeader := tcell.StyleDefault.Bold(true).Reverse(true)
	styleText := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHelp := tcell.StyleDefault.Foreground(tcell.ColorGray)

	drawText(t.screen, 0, 0, width, styleHeader, " AIRPORT")
	for i, line := range t.lines {
		y := i + 2
		if y >= height-1 {
			break
		}
		drawText(t.screen, 0, y, width, styleText, line)
	}
	drawText(t.screen, 0, height-1, width, styleHelp, helpLine)
	t.screen.Show()
}

// Close gives the terminal back. Run returns shortly after.
func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.screen.Fini()
}

// drawText draws a string at the given position.
func drawText(screen tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	// Fill remaining space
	for col < maxWidth {
		screen.SetContent(x+col, y, ' ', nil, style)
		col++
	}
}
