// Package input maps terminal key events to player actions.
package input

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

const queueSize = 32

type Action int

const (
	None Action = iota
	TogglePause
	VolumeUp
	VolumeDown
	NextStation
	OpenSearch
	Quit
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case TogglePause:
		return "toggle-pause"
	case VolumeUp:
		return "volume-up"
	case VolumeDown:
		return "volume-down"
	case NextStation:
		return "next-station"
	case OpenSearch:
		return "open-search"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Translate returns the action bound to event, or None.
func Translate(event *tcell.EventKey) Action {
	if event == nil {
		return None
	}

	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'p', ' ':
			return TogglePause
		case 'V', '+', '=':
			return VolumeUp
		case 'v', '-', '_':
			return VolumeDown
		case 'n', '>':
			return NextStation
		case 'y', 's':
			return OpenSearch
		case 'q', 'Q':
			return Quit
		}
	case tcell.KeyRight:
		return VolumeUp
	case tcell.KeyLeft:
		return VolumeDown
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Quit
	}
	return None
}

// Dispatcher queues actions from the UI goroutine for the main loop.
type Dispatcher struct {
	actions chan Action
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{actions: make(chan Action, queueSize)}
}

// Feed translates event and enqueues its action without blocking. It reports
// whether the event was consumed.
func (d *Dispatcher) Feed(event *tcell.EventKey) bool {
	action := Translate(event)
	if action == None {
		return false
	}
	d.Push(action)
	return true
}

// Push enqueues action, dropping it when the queue is full.
func (d *Dispatcher) Push(action Action) {
	select {
	case d.actions <- action:
	default:
		log.Debug().Str("action", action.String()).Msg("Input queue full, dropping action")
	}
}

// Poll waits up to timeout for the next action.
func (d *Dispatcher) Poll(ctx context.Context, timeout time.Duration) (Action, bool) {
	select {
	case a := <-d.actions:
		return a, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case a := <-d.actions:
		return a, true
	case <-timer.C:
		return None, false
	case <-ctx.Done():
		return None, false
	}
}
