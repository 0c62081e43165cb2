// Package limits bounds setpoints to the configured minimum and maximum temperature.
package limits

import (
	"fmt"
	"log/slog"
	"math"
)

// Limit holds an optional minimum and maximum temperature.
type Limit struct {
	Min *float64
	Max *float64
}

// New returns a Limit with both bounds set.
func New(minimum, maximum float64) Limit {
	return Limit{Min: &minimum, Max: &maximum}
}

// Complete returns true if both bounds are set.
func (l Limit) Complete() bool {
	return l.Min != nil && l.Max != nil
}

// Resolve returns the effective bounds: each bound that is not set in l is taken from fallback.
func (l Limit) Resolve(fallback Limit) (float64, float64) {
	minimum, maximum := math.Inf(-1), math.Inf(1)
	switch {
	case l.Min != nil:
		minimum = *l.Min
	case fallback.Min != nil:
		minimum = *fallback.Min
	}
	switch {
	case l.Max != nil:
		maximum = *l.Max
	case fallback.Max != nil:
		maximum = *fallback.Max
	}
	return minimum, maximum
}

func (l Limit) String() string {
	return fmt.Sprintf("[%s, %s]", bound(l.Min), bound(l.Max))
}

func (l Limit) LogValue() slog.Value {
	return slog.StringValue(l.String())
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// Clamp bounds level to the limit, falling back to fallback for any bound the limit does not set,
// and rounds the result to the nearest half degree.
//
// If rounding would move the result outside the bounds, the nearest half degree inside the bounds is used.
// If no half degree lies inside the bounds, the bounded value is returned as is.
func Clamp(level float64, limit, fallback Limit) float64 {
	minimum, maximum := limit.Resolve(fallback)
	clamped := math.Min(math.Max(level, minimum), maximum)

	rounded := Round(clamped)
	if rounded > maximum {
		rounded = math.Floor(maximum*2) / 2
	}
	if rounded < minimum {
		rounded = math.Ceil(minimum*2) / 2
	}
	if rounded < minimum || rounded > maximum {
		return clamped
	}
	return rounded
}

// Round rounds level to the nearest half degree.
func Round(level float64) float64 {
	return math.Round(level*2) / 2
}
