// Package dayclock derives the per-place send bucket ("day key") in a fixed
// reference time zone, independent of any user's zone.
package dayclock

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// Clock computes day keys. The zero value uses UTC.
type Clock struct {
	loc    *time.Location
	unique bool
}

// New returns a clock for the named reference zone.
func New(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load reference time zone %q: %w", zone, err)
	}
	return &Clock{loc: loc}, nil
}

// WithUniqueKeys returns a copy whose keys never repeat, which effectively
// disables the one-send-per-day limit. Only wired from dev overrides.
func (c *Clock) WithUniqueKeys() *Clock {
	cp := *c
	cp.unique = true
	return &cp
}

// Location returns the reference zone.
func (c *Clock) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayKey returns the YYYY-MM-DD bucket for now in the reference zone.
func (c *Clock) DayKey(now time.Time) string {
	local := now.In(c.Location())
	if c != nil && c.unique {
		return fmt.Sprintf("%s-%s-%s", local.Format(dayLayout), local.Format("150405"), uuid.NewString()[:8])
	}
	return local.Format(dayLayout)
}
