// Package notifier informs the user when the controller changes a setpoint or the power state.
package notifier

import (
	"fmt"
	"time"
)

type Notifier interface {
	Notify(Event)
}

type Notifiers []Notifier

func (n Notifiers) Notify(e Event) {
	for _, l := range n {
		l.Notify(e)
	}
}

// Kind identifies what changed.
type Kind int

const (
	SetpointChanged Kind = iota
	PowerChanged
)

func (k Kind) String() string {
	if k == PowerChanged {
		return "power"
	}
	return "setpoint"
}

// An Event reports a change made by the controller.
type Event struct {
	Time   time.Time
	Kind   Kind
	Scope  string
	Level  float64
	Unit   string
	Power  bool
	Source string
}

func (e Event) Title() string {
	if e.Kind == PowerChanged {
		if e.Power {
			return "heating switched on"
		}
		return "heating switched off"
	}
	return fmt.Sprintf("%s: setpoint set to %.1f%s", e.Scope, e.Level, e.Unit)
}

func (e Event) Text() string {
	return "triggered by " + e.Source
}
