// Package system provides a real clock implementation.
package system

import "time"

// Clock implements bingo.Clock using time.Now. Session timers and the
// debounce window both read through it so tests can substitute a fake.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
