package state

import "sync/atomic"

// Clock is a Lamport clock.
type Clock struct {
	counter atomic.Uint64
}

// Tick advances the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}

// Observe moves the clock forward to at least ts.
func (c *Clock) Observe(ts uint64) {
	for {
		cur := c.counter.Load()
		if ts <= cur || c.counter.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// Now returns the current value without advancing it.
func (c *Clock) Now() uint64 {
	return c.counter.Load()
}
