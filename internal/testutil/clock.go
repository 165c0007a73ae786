package testutil

import (
	"sync"
	"time"
)

// FixedClock provides a thread-safe deterministic time source for tests.
//
// Each call to Now advances by a fixed step, so stage timestamps and
// durations in traces are reproducible across runs. This enables golden
// trace comparison without scrubbing.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at start, advancing by step on
// every Now call.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{now: start, step: step}
}

// NewDefaultClock returns a clock at a fixed reference instant stepping by
// one millisecond, the common case for golden traces.
func NewDefaultClock() *FixedClock {
	return NewFixedClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), time.Millisecond)
}

// Now returns the current instant and advances the clock by one step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to start for test reuse.
func (c *FixedClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = start
}
