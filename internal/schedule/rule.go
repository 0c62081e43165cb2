// Package schedule selects the schedule rule that applies at a given time and determines when that selection may change.
package schedule

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/clambin/go-common/set"
)

// Mode determines how a Rule's setpoint is applied.
type Mode int

const (
	// Absolute rules set the setpoint to the rule's value.
	Absolute Mode = iota
	// Relative rules add the rule's value to the scope's base setpoint.
	Relative
)

var modeNames = map[Mode]string{
	Absolute: "absolute",
	Relative: "relative",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode returns the Mode for its configured name.
func ParseMode(s string) (Mode, error) {
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("invalid mode %q", s)
}

// A Rule is one entry of a priority-ordered schedule.
type Rule struct {
	// PresenceModes restricts the rule to a set of presence modes. An empty set matches any mode.
	PresenceModes set.Set[string]
	// Days restricts the rule to a set of weekdays. An empty set matches any day.
	Days     set.Set[time.Weekday]
	From     TimeOfDay
	To       TimeOfDay
	Mode     Mode
	Setpoint float64
}

// Matches returns true if the rule applies at now, for the current presence mode.
// An empty presence mode means the presence sensor is unavailable: rules restricted to presence modes then never match.
func (r Rule) Matches(now time.Time, presence string) bool {
	return r.matchesPresence(presence) && MatchesDay(r.Days, now) && MatchesWindow(now, r.From, r.To)
}

func (r Rule) matchesPresence(presence string) bool {
	if len(r.PresenceModes) == 0 {
		return true
	}
	return presence != "" && r.PresenceModes.Contains(presence)
}

// Apply returns the rule's contribution for the provided base setpoint.
func (r Rule) Apply(base float64) float64 {
	if r.Mode == Relative {
		return base + r.Setpoint
	}
	return r.Setpoint
}

// HasWindow returns true if the rule is restricted to a time of day.
func (r Rule) HasWindow() bool {
	return r.From.Set || r.To.Set
}

func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.From.String() + "-" + r.To.String())
	if len(r.Days) > 0 {
		days := make([]int, 0, len(r.Days))
		for day := range r.Days {
			days = append(days, int(day))
		}
		slices.Sort(days)
		b.WriteString(fmt.Sprintf(" days:%v", days))
	}
	if len(r.PresenceModes) > 0 {
		modes := make([]string, 0, len(r.PresenceModes))
		for mode := range r.PresenceModes {
			modes = append(modes, mode)
		}
		slices.Sort(modes)
		b.WriteString(" presence:" + strings.Join(modes, ","))
	}
	b.WriteString(fmt.Sprintf(" %s:%.1f", r.Mode, r.Setpoint))
	return b.String()
}

func (r Rule) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("from", r.From.String()),
		slog.String("to", r.To.String()),
		slog.String("mode", r.Mode.String()),
		slog.Float64("setpoint", r.Setpoint),
	)
}

// Rules is an ordered list of Rule. The order is the priority: the first matching rule wins.
type Rules []Rule

// Select returns the first rule that matches at now, for the current presence mode.
func (r Rules) Select(now time.Time, presence string) (Rule, bool) {
	for _, rule := range r {
		if rule.Matches(now, presence) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Setpoint returns the contribution of the first matching rule, using base for relative rules.
// If no rule matches, it returns false.
func (r Rules) Setpoint(now time.Time, presence string, base float64) (float64, bool) {
	rule, ok := r.Select(now, presence)
	if !ok {
		return 0, false
	}
	return rule.Apply(base), true
}
