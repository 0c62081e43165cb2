package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeOfDay is an hour:minute pair read from an "HH:MM" string. A TimeOfDay that is not Set imposes no constraint.
type TimeOfDay struct {
	Hour   int
	Minute int
	Set    bool
	// Raw holds the configured text, so malformed entries can be reported.
	Raw string
}

var timeOfDayFormat = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)

// ParseTimeOfDay parses an "HH:MM" string. It returns false if the string is malformed or out of range.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	match := timeOfDayFormat.FindStringSubmatch(s)
	if match == nil {
		return TimeOfDay{Raw: s}, false
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return TimeOfDay{Raw: s}, false
	}
	return TimeOfDay{Hour: hour, Minute: minute, Set: true, Raw: s}, true
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics if the string is malformed.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, ok := ParseTimeOfDay(s)
	if !ok {
		panic("invalid time of day: " + s)
	}
	return t
}

// On returns the instant on now's calendar day at the TimeOfDay's hour and minute, seconds zeroed.
func (t TimeOfDay) On(now time.Time) time.Time {
	return t.onDay(now, 0)
}

// onDay is like On, but shifted by a number of calendar days. The hour and minute are re-applied on the target day,
// so a daylight-saving transition does not shift the wall-clock time.
func (t TimeOfDay) onDay(now time.Time, days int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, t.Hour, t.Minute, 0, 0, now.Location())
}

// Malformed reports whether the TimeOfDay was configured, but could not be parsed.
func (t TimeOfDay) Malformed() bool {
	return !t.Set && t.Raw != ""
}

func (t TimeOfDay) String() string {
	if !t.Set {
		return "-"
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid time of day: %w", err)
	}
	// a malformed time degrades to "no constraint". Raw is kept so the loader can warn about it.
	*t, _ = ParseTimeOfDay(s)
	return nil
}

func (t TimeOfDay) MarshalYAML() (any, error) {
	if !t.Set {
		return t.Raw, nil
	}
	return t.String(), nil
}

// startOfDay returns midnight of now's calendar day.
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// addDays returns midnight of the calendar day a number of days after now's day.
func addDays(now time.Time, days int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, 0, 0, 0, 0, now.Location())
}
