package testutil

import "sync"

// Collector is a thread-safe sink for values observed by a subscriber.
//
// Tests subscribe a Collector's Add method to a conduit and assert on
// Values() afterwards. The snapshot semantics (Values returns a copy)
// keep assertions race-free even while deliveries are still arriving.
//
// Thread-safety: All methods are safe for concurrent use via internal
// mutex.
type Collector[T any] struct {
	mu     sync.Mutex
	values []T
}

// NewCollector creates an empty collector.
func NewCollector[T any]() *Collector[T] {
	return &Collector[T]{}
}

// Add records a value. Pass the method value directly to Subscribe:
//
//	sub := feature.States().Subscribe(col.Add)
func (c *Collector[T]) Add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

// Values returns a copy of everything recorded so far, in arrival order.
func (c *Collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.values))
	copy(out, c.values)
	return out
}

// Len returns the number of recorded values.
func (c *Collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Last returns the most recently recorded value.
// Returns the zero value and false when nothing has been recorded.
func (c *Collector[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		var zero T
		return zero, false
	}
	return c.values[len(c.values)-1], true
}
