package testutil

import (
	"sync"
	"time"
)

// FrozenClock provides a thread-safe wall clock for tests that only
// moves when told to.
//
// Session expiry and reminder scheduling both compare against "now";
// pinning now makes those comparisons deterministic. Inject its Now
// method wherever production code takes a now func.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock pinned to the given instant.
func NewFrozenClock(now time.Time) *FrozenClock {
	return &FrozenClock{now: now}
}

// Now returns the pinned instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward (or backward, with a negative d).
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a new instant.
//
// Used for test reuse; Advance is preferred when the relative jump is
// what the test is about.
func (c *FrozenClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
