package service

import (
	"sync"
	"time"
)

// Clock stamps sync reports. Tests inject a TestClock for deterministic
// timings.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// TestClock starts at a fixed time and advances by Step on every call.
type TestClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewTestClock returns a clock reading start first.
func NewTestClock(start time.Time, step time.Duration) *TestClock {
	return &TestClock{now: start, step: step}
}

// Now returns the current fixed time and advances it.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}
