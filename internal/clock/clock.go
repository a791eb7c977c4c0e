// Package clock supplies the time source used to stamp chat messages,
// subscriptions and presence heartbeats.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a settable clock for tests and replays.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock set to t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// FromMillis returns a Manual clock set to the Unix millisecond instant ms.
func FromMillis(ms int64) *Manual {
	return NewManual(time.UnixMilli(ms))
}

// Now returns the current manual instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// SetMillis moves the clock to the Unix millisecond instant ms.
func (m *Manual) SetMillis(ms int64) {
	m.Set(time.UnixMilli(ms))
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Millis returns c.Now() as Unix milliseconds.
func Millis(c Clock) int64 {
	return c.Now().UnixMilli()
}
