package shared

import "time"

// Clock supplies the current instant and the zone used for calendar math.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock returns a clock in loc, or time.Local when loc is nil.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return SystemClock{loc: loc}
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clock's location
func (c SystemClock) Location() *time.Location {
	return c.loc
}

// FixedClock always reports the same instant. Used by tests and replays.
type FixedClock struct {
	At  time.Time
	Loc *time.Location
}

// Now returns the fixed instant in the clock's location
func (c FixedClock) Now() time.Time {
	return c.At.In(c.Location())
}

// Location returns the clock's location, defaulting to UTC
func (c FixedClock) Location() *time.Location {
	if c.Loc == nil {
		return time.UTC
	}
	return c.Loc
}
