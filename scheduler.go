package volition

import "sync"

// Scheduler is a logical execution context for feature work.
//
// A Scheduler accepts tasks and runs them later; implementations decide
// where and when, but tasks submitted by one goroutine must run in
// submission order. The engine never assumes a scheduler is
// single-threaded - the execution core carries its own serialization -
// but per-subscriber delivery order does rely on the submission-order
// guarantee.
//
// A nil Scheduler in Config means "no hop": work runs synchronously
// inline on whichever goroutine triggered it. That is the fully
// deterministic mode used by most tests.
type Scheduler interface {
	// Schedule submits a task for execution. Must not block on the
	// task's completion. Safe to call from any goroutine.
	Schedule(task func())
}

// SerialScheduler runs tasks one at a time on a single dedicated goroutine.
//
// This is the standard production context for a feature: hand one
// instance to Config.FeatureScheduler and (optionally) another to
// Config.ObservationScheduler, and every callback of the corresponding
// side runs thread-confined to that goroutine.
//
// The queue is unbounded so cascading submissions (a task scheduling
// another task) never block. A closed scheduler drops new tasks.
//
// Thread-safety model:
//   - Schedule(): safe from any goroutine
//   - Close(): safe from any goroutine, idempotent
//   - tasks: run on exactly one goroutine, in submission order
//
// Task panics are not recovered; a panicking task crashes the process
// like any unhandled panic on a private goroutine.
type SerialScheduler struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // Signals task availability (buffered, size 1)
	done   chan struct{} // Closed when the worker goroutine exits
}

// NewSerialScheduler creates a scheduler and starts its worker goroutine.
// Callers own the scheduler's lifecycle and must Close it when done.
func NewSerialScheduler() *SerialScheduler {
	s := &SerialScheduler{
		tasks:  make([]func(), 0, 64), // Pre-allocate for typical workloads
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule implements Scheduler.
// Thread-safe: may be called from any goroutine. Tasks submitted after
// Close are silently dropped.
func (s *SerialScheduler) Schedule(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.tasks = append(s.tasks, task)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Close stops the scheduler after draining already-submitted tasks.
// Blocks until the worker goroutine has exited. Idempotent.
func (s *SerialScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.signal) // Wakes the worker; it drains and exits
	s.mu.Unlock()

	<-s.done
}

// run is the worker loop. Runs on exactly one goroutine.
func (s *SerialScheduler) run() {
	defer close(s.done)

	for {
		// Try non-blocking dequeue first
		task, ok := s.tryDequeue()
		if ok {
			task()
			continue
		}

		// No task ready - wait for signal or closure.
		// The signal channel closes on Close, which makes this receive
		// fire immediately; the loop then drains any remaining tasks
		// before the emptiness check below exits.
		<-s.signal

		s.mu.Lock()
		stop := s.closed && len(s.tasks) == 0
		s.mu.Unlock()
		if stop {
			return
		}
	}
}

// tryDequeue attempts to dequeue without blocking.
// Returns (nil, false) if the queue is empty.
func (s *SerialScheduler) tryDequeue() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) == 0 {
		return nil, false
	}

	task := s.tasks[0]

	// CRITICAL: Nil out the slot so the closure and everything it
	// captures become collectible. Without this, the underlying array
	// retains references until reallocated, causing memory leaks under
	// steady load.
	s.tasks[0] = nil

	// Fix memory retention: reset slice when empty
	if len(s.tasks) == 1 {
		// Last element - reset to empty slice with original capacity
		s.tasks = s.tasks[:0]
	} else {
		s.tasks = s.tasks[1:]
	}

	return task, true
}

// schedule routes a task through sch, or runs it inline when sch is nil.
// The inline path is the "no hop" contract documented on Scheduler.
func schedule(sch Scheduler, task func()) {
	if sch == nil {
		task()
		return
	}
	sch.Schedule(task)
}
