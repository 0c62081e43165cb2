package configuration

import (
	"fmt"

	"github.com/clambin/thermostat-control/internal/limits"
	"github.com/clambin/thermostat-control/internal/schedule"
)

// Heating is the validated heating configuration. It does not change during the lifetime of the controller.
type Heating struct {
	Unit               Unit
	DefaultTemperature float64
	GlobalLimit        limits.Limit
	GlobalSchedules    schedule.Rules
	Zones              []Zone
}

// A Zone is a group of devices sharing schedule rules and limits.
type Zone struct {
	Index     int
	Name      string
	Schedules schedule.Rules
	Limit     limits.Limit
	Devices   []string
}

// Unit is the temperature unit. It only determines how temperatures are shown.
type Unit int

const (
	Celsius Unit = iota
	Fahrenheit
)

// ParseUnit returns the Unit for its configured name. An empty name defaults to Celsius.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "celsius":
		return Celsius, nil
	case "fahrenheit":
		return Fahrenheit, nil
	default:
		return 0, fmt.Errorf("invalid unit %q", s)
	}
}

func (u Unit) String() string {
	if u == Fahrenheit {
		return "fahrenheit"
	}
	return "celsius"
}

// Symbol returns the unit's scale title.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}
