package controller

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/clambin/thermostat-control/internal/controller/notifier"
	"github.com/clambin/thermostat-control/internal/limits"
)

// ErrInvalidCommand indicates a command that the virtual device does not support.
var ErrInvalidCommand = errors.New("invalid command")

// A Command is sent to one of the controller's virtual devices: the global thermostat accepts "exact" with a level.
// The switch accepts "on" and "off".
type Command struct {
	Command string   `json:"command"`
	Level   *float64 `json:"level,omitempty"`
}

// Thermostat executes a command sent to the global thermostat.
func (c *Controller) Thermostat(ctx context.Context, cmd Command) error {
	if cmd.Command != "exact" || cmd.Level == nil {
		return fmt.Errorf("%w: thermostat does not support %q", ErrInvalidCommand, cmd.Command)
	}
	return c.SetLevel(ctx, *cmd.Level)
}

// Switch executes a command sent to the heating's power switch.
func (c *Controller) Switch(ctx context.Context, cmd Command) error {
	switch cmd.Command {
	case "on":
		return c.SetPower(ctx, true)
	case "off":
		return c.SetPower(ctx, false)
	default:
		return fmt.Errorf("%w: switch does not support %q", ErrInvalidCommand, cmd.Command)
	}
}

// SetLevel sets the global setpoint manually, bound to the global limit, and resolves the zone setpoints against it.
func (c *Controller) SetLevel(ctx context.Context, level float64) error {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return fmt.Errorf("%w: invalid level %v", ErrInvalidCommand, level)
	}
	return c.do(ctx, command{kind: setLevel, level: level})
}

// SetPower switches the heating on or off. Switching the heating on resolves the setpoints immediately.
func (c *Controller) SetPower(ctx context.Context, on bool) error {
	return c.do(ctx, command{kind: setPower, power: on})
}

type commandKind int

const (
	setLevel commandKind = iota
	setPower
)

type command struct {
	kind   commandKind
	level  float64
	power  bool
	result chan error
}

// do hands the command to the Run loop and waits for its result.
func (c *Controller) do(ctx context.Context, cmd command) error {
	cmd.result = make(chan error, 1)
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) execute(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case setLevel:
		c.setLevel(ctx, cmd.level)
	case setPower:
		c.setPower(ctx, cmd.power)
	default:
		return ErrInvalidCommand
	}
	return nil
}

func (c *Controller) setLevel(ctx context.Context, level float64) {
	level = limits.Clamp(level, c.heating.GlobalLimit, limits.Limit{})
	state := c.getState()
	state.Level = ptr(level)
	c.setState(ctx, state)

	c.logger.Info("global setpoint set manually", "level", level)
	c.metrics.SetpointChanged(globalScope, level)
	c.notify(notifier.Event{Kind: notifier.SetpointChanged, Scope: globalScope, Level: level, Source: SourceSetpoint.String()})
	c.Resolve(ctx, SourceSetpoint)
}

func (c *Controller) setPower(ctx context.Context, on bool) {
	state := c.getState()
	if state.Power == on {
		return
	}
	state.Power = on
	c.setState(ctx, state)

	c.logger.Info("heating switched", "on", on)
	c.metrics.PowerChanged(on)
	c.notify(notifier.Event{Kind: notifier.PowerChanged, Scope: globalScope, Source: "power"})
	if !on {
		c.cancelWakeups()
		return
	}
	c.Resolve(ctx, SourceSetpoint)
}
