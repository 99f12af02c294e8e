// Package system provides a wall clock pinned to a configured time zone.
package system

import "time"

// Clock implements news.Clock using time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock reporting times in loc. A nil loc means UTC.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the zone used for "today" calculations.
func (c *Clock) Location() *time.Location {
	return c.loc
}
