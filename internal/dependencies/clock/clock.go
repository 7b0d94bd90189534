package clock

import "time"

// Clock is the time source for timestamps on users, parties and invites
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC, so stored timestamps compare and
// serialise the same across storage backends
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}
