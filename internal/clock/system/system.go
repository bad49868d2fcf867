// Package system provides clock implementations for jobs.Clock.
package system

import "time"

// Clock implements jobs.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC; records are stamped with it.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Frozen always returns the same instant. It keeps posted_at stable in tests
// and dry runs that are compared across invocations.
type Frozen struct {
	At time.Time
}

// Now returns f.At in UTC.
func (f Frozen) Now() time.Time {
	return f.At.UTC()
}
