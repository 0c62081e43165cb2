package controller

import (
	"context"
	"time"

	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/clambin/thermostat-control/internal/controller/notifier"
	"github.com/clambin/thermostat-control/internal/limits"
)

const globalScope = configuration.GlobalScope

// Resolve computes the global setpoint and the zone setpoints for the source, dispatches the zone setpoints to the
// zone's devices and re-plans the wake-ups. Resolve does nothing while the heating is switched off.
//
// Resolve must only be called from the goroutine that owns the controller, i.e. its Run loop.
func (c *Controller) Resolve(ctx context.Context, source Source) {
	c.resolve(ctx, source, c.now())
}

func (c *Controller) resolve(ctx context.Context, source Source, now time.Time) {
	state := c.getState()
	if !state.Power {
		c.logger.Debug("heating switched off. not resolving", "source", source)
		return
	}

	presence, ok := c.presence.Mode()
	if !ok {
		c.logger.Warn("presence mode unknown. presence-filtered rules will not match")
		presence = ""
	}
	c.logger.Debug("resolving setpoints", "source", source, "presence", presence, "state", state)

	global := c.resolveGlobal(ctx, source, now, presence, state)

	for _, zone := range c.heating.Zones {
		if index, ok := source.ZoneScoped(); ok && index != zone.Index {
			continue
		}
		c.dispatchZone(ctx, zone, ZoneSetpoint(c.heating, zone, now, presence, global), source)
	}

	c.metrics.Resolved(source.String())
	c.planWakeups(ctx, now)
}

// resolveGlobal returns the global setpoint for this resolution and writes it to the state if it changed.
func (c *Controller) resolveGlobal(ctx context.Context, source Source, now time.Time, presence string, state State) float64 {
	// a manual setpoint is authoritative. a zone wake-up only re-evaluates its zone, against the displayed global setpoint.
	if (source.Kind == Setpoint || source.Kind == ZoneWakeup) && state.Level != nil {
		return *state.Level
	}

	level := GlobalSetpoint(c.heating, now, presence)

	if source.Kind == Init && state.Overridden() {
		c.logger.Info("setpoint changed manually. keeping it", "level", *state.Level, "calculated", formatLevel(state.Calculated), "scheduled", level)
		return *state.Level
	}

	if state.Level != nil && *state.Level == level {
		if state.Calculated == nil || *state.Calculated != level {
			state.Calculated = ptr(level)
			c.setState(ctx, state)
		}
		return level
	}

	state.Level = ptr(level)
	state.Calculated = ptr(level)
	c.setState(ctx, state)
	c.logger.Info("global setpoint changed", "level", level, "source", source)
	c.metrics.SetpointChanged(globalScope, level)
	c.notify(notifier.Event{Kind: notifier.SetpointChanged, Scope: globalScope, Level: level, Source: source.String()})
	return level
}

// dispatchZone sends the level to every device of the zone. A failing device does not prevent sending to the others.
func (c *Controller) dispatchZone(ctx context.Context, zone configuration.Zone, level float64, source Source) {
	for _, device := range zone.Devices {
		if err := c.dispatcher.Dispatch(ctx, device, level); err != nil {
			c.logger.Error("failed to set device setpoint", "zone", zone.Name, "device", device, "level", level, "err", err)
			c.metrics.DispatchFailed(device)
		}
	}

	c.lock.Lock()
	previous, ok := c.zones[zone.Name]
	c.zones[zone.Name] = level
	c.lock.Unlock()

	if !ok || previous != level {
		c.logger.Info("zone setpoint changed", "zone", zone.Name, "level", level, "source", source)
		c.metrics.SetpointChanged(zone.Name, level)
		c.notify(notifier.Event{Kind: notifier.SetpointChanged, Scope: zone.Name, Level: level, Source: source.String()})
	}
}

func (c *Controller) planWakeups(ctx context.Context, now time.Time) {
	planned := Plan(c.heating, now)
	c.lock.Lock()
	c.wakeups.replace(ctx, planned, now)
	c.lock.Unlock()
	c.metrics.WakeupsScheduled(len(planned))
	for _, wakeup := range planned {
		c.logger.Debug("wake-up scheduled", "wakeup", wakeup)
	}
}

// GlobalSetpoint returns the global setpoint at the given time and presence mode: the first matching global rule,
// applied to the default temperature, or the default temperature itself, bound to the global limit.
func GlobalSetpoint(h configuration.Heating, now time.Time, presence string) float64 {
	level := h.DefaultTemperature
	if scheduled, ok := h.GlobalSchedules.Setpoint(now, presence, level); ok {
		level = scheduled
	}
	return limits.Clamp(level, h.GlobalLimit, limits.Limit{})
}

// ZoneSetpoint returns the zone's setpoint: the first matching zone rule, applied to the global setpoint, or the global
// setpoint itself, bound to the zone's limit. Any bound the zone does not set is taken from the global limit.
func ZoneSetpoint(h configuration.Heating, zone configuration.Zone, now time.Time, presence string, global float64) float64 {
	level := global
	if scheduled, ok := zone.Schedules.Setpoint(now, presence, global); ok {
		level = scheduled
	}
	return limits.Clamp(level, zone.Limit, h.GlobalLimit)
}

func ptr(v float64) *float64 {
	return &v
}
