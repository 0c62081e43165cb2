package bot

import (
	"errors"
	"fmt"
	"strconv"
)

func parseSetLevel(args ...string) (float64, error) {
	if len(args) != 1 {
		return 0, errors.New("missing parameters\nUsage: setpoint <temperature>")
	}
	level, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature: %q", args[0])
	}
	return level, nil
}

func parseSetPower(args ...string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("missing parameters\nUsage: power [on|off]")
	}
	switch args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid power state: %q", args[0])
	}
}
