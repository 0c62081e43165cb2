// Package devices sends setpoints to the heating's devices.
//
// A device is identified as "<kind>:<id>", e.g. "mqtt:bathroom" or "tado:4". A device without a kind is sent
// to the Router's default kind.
package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownDevice indicates a device whose kind has no Dispatcher.
var ErrUnknownDevice = errors.New("unknown device kind")

type Dispatcher interface {
	Dispatch(ctx context.Context, device string, level float64) error
}

// Router sends a setpoint to the Dispatcher for the device's kind.
type Router struct {
	Dispatchers map[string]Dispatcher
	Default     string
	Timeout     time.Duration
}

func (r Router) Dispatch(ctx context.Context, device string, level float64) error {
	kind, id := r.parse(device)
	d, ok := r.Dispatchers[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if err := d.Dispatch(ctx, id, level); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func (r Router) parse(device string) (string, string) {
	if kind, id, ok := strings.Cut(device, ":"); ok {
		return kind, id
	}
	return r.Default, device
}
