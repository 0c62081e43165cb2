package schedule

import (
	"time"
)

// daysInWeek bounds the search for the next boundary: any recurring boundary occurs within a week.
const daysInWeek = 7

// NextBoundary returns the first instant after now at which the rule may start or stop matching.
//
// Boundaries are the rule's from and to times, on days accepted by its day filter, and, for rules with a day filter,
// the midnights at which the day filter's outcome flips. A window with only one bound is also bounded by midnight.
// Presence modes are ignored: presence may change before the boundary is reached. NextBoundary returns false if the
// rule has no boundary.
func (r Rule) NextBoundary(now time.Time) (time.Time, bool) {
	var next time.Time
	var found bool
	consider := func(at time.Time, ok bool) {
		if ok && (!found || at.Before(next)) {
			next, found = at, true
		}
	}

	consider(r.nextOccurrence(now, r.From))
	consider(r.nextOccurrence(now, r.To))
	consider(r.nextDayChange(now))
	if r.From.Set != r.To.Set {
		consider(addDays(now, 1), true)
	}

	return next, found
}

// nextOccurrence returns the first instant after now at time of day t, on a day accepted by the rule's day filter.
func (r Rule) nextOccurrence(now time.Time, t TimeOfDay) (time.Time, bool) {
	if !t.Set {
		return time.Time{}, false
	}
	for day := 0; day <= daysInWeek; day++ {
		at := t.onDay(now, day)
		if at.After(now) && MatchesDay(r.Days, at) {
			return at, true
		}
	}
	return time.Time{}, false
}

// nextDayChange returns the first midnight after now at which the rule's day filter changes outcome.
func (r Rule) nextDayChange(now time.Time) (time.Time, bool) {
	if len(r.Days) == 0 {
		return time.Time{}, false
	}
	previous := MatchesDay(r.Days, now)
	for day := 1; day <= daysInWeek; day++ {
		midnight := addDays(now, day)
		current := MatchesDay(r.Days, midnight)
		if current != previous {
			return midnight, true
		}
		previous = current
	}
	return time.Time{}, false
}

// NextBoundary returns the earliest boundary of all rules.
func (r Rules) NextBoundary(now time.Time) (time.Time, bool) {
	var next time.Time
	var found bool
	for _, rule := range r {
		if at, ok := rule.NextBoundary(now); ok && (!found || at.Before(next)) {
			next, found = at, true
		}
	}
	return next, found
}
