package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/clambin/thermostat-control/pkg/scheduler"
)

// A Wakeup is a scheduled re-evaluation of a scope's setpoint.
type Wakeup struct {
	Source     Source
	At         time.Time
	generation uint64
}

func (w Wakeup) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", w.Source.String()),
		slog.Time("at", w.At),
	)
}

// Plan returns the wake-ups for the configuration at the given time: one for the global scope and one for each zone,
// at the earliest upcoming boundary of that scope's rules. Scopes without any boundary get no wake-up.
func Plan(h configuration.Heating, now time.Time) []Wakeup {
	var wakeups []Wakeup
	if at, ok := h.GlobalSchedules.NextBoundary(now); ok {
		wakeups = append(wakeups, Wakeup{Source: SourceGlobal, At: at})
	}
	for _, zone := range h.Zones {
		if at, ok := zone.Schedules.NextBoundary(now); ok {
			wakeups = append(wakeups, Wakeup{Source: SourceZone(zone.Index), At: at})
		}
	}
	return wakeups
}

// wakeups holds the currently scheduled wake-ups. Once a wake-up is due, it is sent on the fired channel.
// Each call to replace or cancelAll starts a new generation. Wake-ups from an earlier generation that were already
// sent are stale and must be dropped by the receiver.
//
// wakeups is not safe for concurrent use: only the controller's Run loop manages it.
type wakeups struct {
	fired      chan Wakeup
	jobs       []*scheduler.Job
	planned    []Wakeup
	generation uint64
}

func newWakeups() *wakeups {
	return &wakeups{fired: make(chan Wakeup)}
}

// replace cancels all scheduled wake-ups and schedules the planned ones.
func (w *wakeups) replace(ctx context.Context, planned []Wakeup, now time.Time) {
	w.cancelAll()
	w.planned = make([]Wakeup, len(planned))
	for i, wakeup := range planned {
		wakeup.generation = w.generation
		w.planned[i] = wakeup
		w.jobs = append(w.jobs, scheduler.Schedule(ctx, scheduler.RunFunc(func(ctx context.Context) error {
			select {
			case w.fired <- wakeup:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}), max(wakeup.At.Sub(now), 0)))
	}
}

// cancelAll cancels all scheduled wake-ups. Cancelling is idempotent.
func (w *wakeups) cancelAll() {
	for _, job := range w.jobs {
		job.Cancel()
	}
	w.jobs = nil
	w.planned = nil
	w.generation++
}

// current reports whether the fired wake-up belongs to the current generation.
func (w *wakeups) current(wakeup Wakeup) bool {
	return wakeup.generation == w.generation
}

// scheduled returns a copy of the scheduled wake-ups.
func (w *wakeups) scheduled() []Wakeup {
	if len(w.planned) == 0 {
		return nil
	}
	return append([]Wakeup(nil), w.planned...)
}
