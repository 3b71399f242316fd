// Package clock provides the time source and the cancellable scheduled-action
// primitive used for challenge deadlines and delayed unbans
package clock

import (
	"sync"
	"time"
)

// Clock is the time source seam; production code uses System, tests use Manual
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

// Now returns the current UTC time
func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a hand-driven clock for tests
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock frozen at start
func NewManual(start time.Time) *Manual { return &Manual{now: start.UTC()} }

// Now returns the frozen time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
