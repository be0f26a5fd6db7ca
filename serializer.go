package volition

import "sync"

// serializer runs execution-core units one at a time, in submission order,
// regardless of which goroutine submits them.
//
// Units are submitted from many places: Accept callers, the bootstrapper
// reader, actor effect readers, and - re-entrantly - from inside a running
// unit when the post-processor dispatches a follow-up action. The
// serializer guarantees that a unit submitted from within a unit is
// QUEUED, never nested: the running unit finishes first, then the queue
// drains in FIFO order. State transitions therefore never observe a
// half-applied predecessor.
//
// The drain loop itself is handed to the configured scheduler (one
// scheduled task drains until the queue is empty). With a nil scheduler
// the drain runs inline on the submitting goroutine, which is what makes
// a fully synchronous feature complete before Accept returns.
//
// Thread-safety: submit is safe from any goroutine. At most one drain
// loop runs at any moment; the running flag hands off ownership under mu.
type serializer struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	sch     Scheduler // nil = drain inline on the submitter
}

// submit appends a unit and starts a drain if none is running.
func (s *serializer) submit(unit func()) {
	s.mu.Lock()
	s.queue = append(s.queue, unit)
	if s.running {
		// A drain loop is active (possibly this very goroutine, when a
		// unit submits re-entrantly). It will pick this unit up.
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	schedule(s.sch, s.drain)
}

// drain executes queued units until none remain, then releases ownership.
func (s *serializer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		unit := s.queue[0]

		// CRITICAL: Nil out the slot so the unit closure and the action/
		// effect values it captures become collectible before the next
		// unit runs.
		s.queue[0] = nil

		if len(s.queue) == 1 {
			// Last element - reset to empty slice, keep capacity
			s.queue = s.queue[:0]
		} else {
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		unit()
	}
}
