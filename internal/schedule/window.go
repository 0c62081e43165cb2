package schedule

import (
	"time"

	"github.com/clambin/go-common/set"
)

// MatchesDay returns true if days is empty or contains now's weekday.
func MatchesDay(days set.Set[time.Weekday], now time.Time) bool {
	return len(days) == 0 || days.Contains(now.Weekday())
}

// MatchesWindow returns true if now falls inside the window [from, to).
//
// If neither bound is set, the window is unrestricted. If only from is set, the window ends at midnight.
// If only to is set, the window starts at midnight. If to is before from, the window spans midnight: it is anchored
// on the previous day if now is before to, and on the next day otherwise.
func MatchesWindow(now time.Time, from, to TimeOfDay) bool {
	switch {
	case !from.Set && !to.Set:
		return true
	case !to.Set:
		return !now.Before(from.On(now))
	case !from.Set:
		return now.Before(to.On(now))
	}

	start, end := from.On(now), to.On(now)
	if end.Before(start) {
		if now.Before(end) {
			start = from.onDay(now, -1)
		} else {
			end = to.onDay(now, 1)
		}
	}
	return !now.Before(start) && now.Before(end)
}
