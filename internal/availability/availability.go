// Package availability decides whether a weekly local-time schedule is open
// at a given instant. It does no I/O.
package availability

import (
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/sdnyco/ichi/internal/model"
)

const minutesPerDay = 24 * 60

// DisabledPolicy tells IsAvailableNow what to answer for a schedule whose
// owner has not enabled availability. Each call site picks one explicitly.
type DisabledPolicy int

const (
	// DisabledUnavailable treats a disabled schedule as closed.
	DisabledUnavailable DisabledPolicy = iota
	// DisabledAvailable treats a disabled schedule as always open.
	DisabledAvailable
)

// Schedule is the availability slice of a place profile.
type Schedule struct {
	Enabled  bool
	Weekly   model.WeeklyAvailability
	TimeZone string
}

// FromProfile extracts the schedule fields of p.
func FromProfile(p *model.PlaceProfile) Schedule {
	return Schedule{
		Enabled:  p.IsAvailabilityEnabled,
		Weekly:   p.AvailabilityWeekly.Data(),
		TimeZone: p.AvailabilityTimeZone,
	}
}

var weekdayKeys = [7]string{
	time.Sunday:    model.Sunday,
	time.Monday:    model.Monday,
	time.Tuesday:   model.Tuesday,
	time.Wednesday: model.Wednesday,
	time.Thursday:  model.Thursday,
	time.Friday:    model.Friday,
	time.Saturday:  model.Saturday,
}

// IsAvailableNow reports whether s is open at now.
//
// Today's window is checked first: a same-day window matches
// start <= m < end, an overnight window (start > end) matches m >= start or
// m < end. Then yesterday's window is checked, and only if it is overnight
// and m < its end. A window with start == end is never open.
func IsAvailableNow(s Schedule, now time.Time, policy DisabledPolicy) bool {
	if !s.Enabled {
		return policy == DisabledAvailable
	}

	local := now.In(location(s.TimeZone))
	m := local.Hour()*60 + local.Minute()
	wd := local.Weekday()

	if start, end, ok := window(s.Weekly, weekdayKeys[wd]); ok {
		if start < end {
			if m >= start && m < end {
				return true
			}
		} else if m >= start || m < end {
			return true
		}
	}

	if start, end, ok := window(s.Weekly, weekdayKeys[(wd+6)%7]); ok && start > end && m < end {
		return true
	}
	return false
}

// window returns the bounds for day when both are set, in range and distinct.
func window(weekly model.WeeklyAvailability, day string) (start, end int, ok bool) {
	w, found := weekly[day]
	if !found || w.Start == nil || w.End == nil {
		return 0, 0, false
	}
	start, end = *w.Start, *w.End
	if start < 0 || start >= minutesPerDay || end < 0 || end >= minutesPerDay || start == end {
		return 0, 0, false
	}
	return start, end, true
}

var locations sync.Map // string -> *time.Location

// location resolves a time zone name, falling back to UTC for empty or unknown names.
func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}
	locations.Store(name, loc)
	return loc
}
