package engine

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// The engine keeps three of them: one stamps trace events with a strictly
// increasing seq, one allocates node ids, and one orders queued work.
// None of them ever reads the wall clock, so a replayed scenario
// produces the same numbers.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AtLeast moves the clock forward so the next value exceeds v. It never
// moves the clock backwards.
func (c *Clock) AtLeast(v int64) {
	for {
		cur := c.seq.Load()
		if cur >= v || c.seq.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Reset moves the clock back to 0.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
