// Package clock provides the time source injected into every
// time-sensitive ledger operation.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current ledger time.
type Clock interface {
	Now() time.Time
}

// System reads the host wall clock. Used by the server only.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a fixed clock that only moves when told to. It never goes
// backwards, so ledger time stays non-decreasing.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock reading t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the current reading.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t if t is not before the current reading.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	if t.After(m.now) {
		m.now = t
	}
	m.mu.Unlock()
}

// Unix returns the clock reading in unix seconds.
func Unix(c Clock) int64 {
	return c.Now().Unix()
}
