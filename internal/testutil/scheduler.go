// Package testutil provides deterministic test doubles for feature tests.
package testutil

import "sync"

// ManualScheduler queues tasks until the test pumps them.
//
// Handing a ManualScheduler to Config.FeatureScheduler or
// Config.ObservationScheduler makes the corresponding context fully
// test-controlled: nothing runs until Pump (one task) or Drain (until
// empty) is called, so tests can assert exactly which work has and has
// not happened at each step.
//
// Thread-safety: All methods are safe for concurrent use via internal
// mutex. Tasks run on the goroutine that calls Pump or Drain.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule queues a task without running it.
func (s *ManualScheduler) Schedule(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

// Pump runs the oldest queued task, if any. Returns true if one ran.
func (s *ManualScheduler) Pump() bool {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return false
	}
	task := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]
	s.mu.Unlock()

	task()
	return true
}

// Drain pumps until no tasks remain, including tasks queued by the
// tasks themselves. Returns the number of tasks run.
func (s *ManualScheduler) Drain() int {
	n := 0
	for s.Pump() {
		n++
	}
	return n
}

// Len returns the number of queued tasks.
func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
