package volition

import "sync/atomic"

// clock is a monotonic logical clock for dispatch ordering.
//
// Every dispatched action is stamped with a strictly increasing seq number
// from this clock. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Log lines and traces can be correlated without timestamps
// - Causal relationships between dispatches are explicit
//
// Thread-safety: clock is safe for concurrent use (atomic operations).
// Accept may stamp from any goroutine; the execution core itself is
// single-threaded, so most calls come from one goroutine in practice.
type clock struct {
	seq atomic.Int64
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *clock) Current() int64 {
	return c.seq.Load()
}
