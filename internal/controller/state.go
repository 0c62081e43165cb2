package controller

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// State is the controller's persisted runtime state. Level is the global setpoint as shown to the user. Calculated is the
// global setpoint the controller last computed from the schedule. Both are nil until the controller has resolved once.
type State struct {
	Level      *float64
	Calculated *float64
	Power      bool
}

// Overridden reports whether the user changed the displayed setpoint since the controller last wrote it.
// A setpoint set before the controller resolved once counts as an override.
func (s State) Overridden() bool {
	return s.Level != nil && (s.Calculated == nil || *s.Level != *s.Calculated)
}

func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", formatLevel(s.Level)),
		slog.String("calculated", formatLevel(s.Calculated)),
		slog.Bool("power", s.Power),
	)
}

func formatLevel(level *float64) string {
	if level == nil {
		return "-"
	}
	return strconv.FormatFloat(*level, 'f', 1, 64)
}

// Status is a snapshot of the controller, as reported to the user.
type Status struct {
	State
	Presence string
	Unit     string
	Min      float64
	Max      float64
	Zones    map[string]float64
	Wakeups  []Wakeup
}

// A StateStore persists the controller's runtime state across restarts.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// A Dispatcher sends an exact setpoint to a device.
type Dispatcher interface {
	Dispatch(ctx context.Context, device string, level float64) error
}

// A PresenceSensor reports the current presence mode. Subscribers are informed when the mode changes.
type PresenceSensor interface {
	Mode() (string, bool)
	Subscribe() chan string
	Unsubscribe(chan string)
}

// Metrics records the controller's activity.
type Metrics interface {
	Resolved(source string)
	SetpointChanged(scope string, level float64)
	DispatchFailed(device string)
	PowerChanged(on bool)
	WakeupsScheduled(wakeups int)
}

// Clock returns the current time.
type Clock func() time.Time

type nopMetrics struct{}

func (nopMetrics) Resolved(string)                 {}
func (nopMetrics) SetpointChanged(string, float64) {}
func (nopMetrics) DispatchFailed(string)           {}
func (nopMetrics) PowerChanged(bool)               {}
func (nopMetrics) WakeupsScheduled(int)            {}
