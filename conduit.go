package volition

import (
	"context"
	"sync"
)

// Conduit is a multicast output channel of a feature.
//
// The state conduit replays the latest value to every new subscriber and
// then streams subsequent updates; the news conduit delivers only items
// published after subscription. Both complete when the feature is
// disposed (Subscription.Err() == nil) or fails fatally (Err() returns
// the *FailureError).
//
// Subscriber callbacks are delivered on the feature's observation
// scheduler. Per subscriber, delivery is strictly ordered and never
// concurrent: each subscriber owns a FIFO of undelivered emissions
// drained by at most one task at a time. Distinct subscribers are
// independent and may observe emissions at different times.
//
// Background() returns a view of the same conduit that bypasses the
// observation scheduler: its subscribers run inline on the publishing
// goroutine. Use it for cheap bookkeeping collaborators (tracing,
// metrics) that must not pay a scheduling hop.
type Conduit[T any] struct {
	h      *hub[T]
	inline bool
}

func newConduit[T any](sch Scheduler, replay bool) *Conduit[T] {
	return &Conduit[T]{
		h: &hub[T]{
			sch:    sch,
			replay: replay,
			subs:   make(map[int64]*subscriber[T]),
		},
	}
}

// Subscribe registers fn for every emission of the conduit.
//
// On a replaying conduit the current value, if any, is delivered first -
// before any update published after Subscribe. Subscribing to a conduit
// that has already completed delivers the replayed value (if any)
// followed immediately by completion.
//
// fn runs on the observation scheduler; on a Background view, or when no
// observation scheduler is configured, it runs inline - which means the
// replayed value may be delivered synchronously before Subscribe returns.
func (c *Conduit[T]) Subscribe(fn func(T)) *Subscription {
	return c.h.subscribe(fn, c.inline)
}

// Background returns a view of this conduit whose subscriptions are
// delivered inline on the publishing goroutine, with no scheduler hop.
// The view shares the conduit's subscribers, replay value and lifecycle.
func (c *Conduit[T]) Background() *Conduit[T] {
	if c.inline {
		return c
	}
	return &Conduit[T]{h: c.h, inline: true}
}

// Watch adapts the conduit to a receive channel.
//
// An internal pump buffers emissions without bound, so a slow receiver
// never blocks the feature. The returned channel closes when the conduit
// completes or ctx is cancelled; callers must cancel ctx when they stop
// receiving, or the pump goroutine leaks waiting on the receiver.
func (c *Conduit[T]) Watch(ctx context.Context) <-chan T {
	out := make(chan T)

	var (
		mu      sync.Mutex
		backlog []T
	)
	signal := make(chan struct{}, 1)

	sub := c.Subscribe(func(v T) {
		mu.Lock()
		backlog = append(backlog, v)
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(out)
		for {
			mu.Lock()
			var (
				next T
				ok   bool
			)
			if len(backlog) > 0 {
				next, ok = backlog[0], true
				var zero T
				backlog[0] = zero
				backlog = backlog[1:]
			}
			mu.Unlock()

			if ok {
				select {
				case out <- next:
					continue
				case <-ctx.Done():
					sub.Cancel()
					return
				}
			}

			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case <-signal:
				// New emission buffered - loop back and deliver it.
			case <-sub.Done():
				// Conduit completed. Anything still buffered drains via
				// the top of the loop; exit once the backlog is empty.
				mu.Lock()
				empty := len(backlog) == 0
				mu.Unlock()
				if empty {
					return
				}
			}
		}
	}()

	return out
}

// Subscription is the handle returned by Conduit.Subscribe.
type Subscription struct {
	cancel func()
	done   <-chan struct{}
	err    func() error
}

// Cancel detaches the subscriber. Idempotent, safe from any goroutine,
// including from inside the subscriber's own callback. A callback already
// in flight on another goroutine may still finish; no new delivery starts
// after Cancel returns.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Done returns a channel closed when the subscription ends: cancelled,
// conduit disposed, or feature failure.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error after Done is closed: the *FailureError
// when the feature failed, nil for cancellation or plain disposal.
func (s *Subscription) Err() error {
	return s.err()
}

// emission is one entry in a subscriber's delivery FIFO. terminal
// entries mark completion and carry the conduit's terminal error.
type emission[T any] struct {
	value    T
	terminal bool
	err      error
}

// hub is the shared core behind the default and Background views of a
// conduit. All mutable state is guarded by mu; subscriber callbacks are
// always invoked with mu released.
type hub[T any] struct {
	mu       sync.Mutex
	sch      Scheduler
	replay   bool
	hasValue bool
	latest   T
	closed   bool
	err      error
	subs     map[int64]*subscriber[T]
	nextID   int64
}

type subscriber[T any] struct {
	h      *hub[T]
	id     int64
	fn     func(T)
	inline bool

	// Guarded by h.mu.
	pending   []emission[T]
	draining  bool // A drain is scheduled or running for this subscriber
	completed bool
	err       error

	done chan struct{}
}

// publish fans a value out to every subscriber. Publishes after closure
// are dropped.
func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if h.replay {
		h.latest, h.hasValue = v, true
	}
	kicks := h.enqueueAll(emission[T]{value: v})
	h.mu.Unlock()

	for _, s := range kicks {
		s.kick()
	}
}

// closeWith completes the conduit. err is the terminal error delivered to
// subscribers (nil for plain disposal). The replay value survives closure
// so late subscribers of a replaying conduit still receive the final
// state. Idempotent; the first closure wins.
func (h *hub[T]) closeWith(err error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.err = err
	kicks := h.enqueueAll(emission[T]{terminal: true, err: err})
	h.mu.Unlock()

	for _, s := range kicks {
		s.kick()
	}
}

// enqueueAll appends an emission to every subscriber's FIFO and returns
// the subscribers whose drain must be started. Caller holds h.mu.
func (h *hub[T]) enqueueAll(em emission[T]) []*subscriber[T] {
	var kicks []*subscriber[T]
	for _, s := range h.subs {
		s.pending = append(s.pending, em)
		if !s.draining {
			s.draining = true
			kicks = append(kicks, s)
		}
	}
	return kicks
}

// snapshot returns the current replay value.
func (h *hub[T]) snapshot() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasValue
}

func (h *hub[T]) subscribe(fn func(T), inline bool) *Subscription {
	h.mu.Lock()
	s := &subscriber[T]{
		h:      h,
		id:     h.nextID,
		fn:     fn,
		inline: inline,
		done:   make(chan struct{}),
	}
	h.nextID++

	if h.replay && h.hasValue {
		s.pending = append(s.pending, emission[T]{value: h.latest})
	}
	if h.closed {
		// Completed conduit: replay (if any) then immediate completion.
		// The subscriber never enters the map - there is nothing left to
		// fan out to it.
		s.pending = append(s.pending, emission[T]{terminal: true, err: h.err})
	} else {
		h.subs[s.id] = s
	}

	kick := len(s.pending) > 0
	if kick {
		s.draining = true
	}
	h.mu.Unlock()

	if kick {
		s.kick()
	}

	return &Subscription{
		cancel: s.cancelSub,
		done:   s.done,
		err: func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			return s.err
		},
	}
}

// kick starts this subscriber's drain: inline on the current goroutine
// for Background subscribers, via the observation scheduler otherwise.
func (s *subscriber[T]) kick() {
	if s.inline {
		s.drain()
		return
	}
	schedule(s.h.sch, s.drain)
}

// drain delivers pending emissions in FIFO order. At most one drain runs
// per subscriber at any moment (the draining flag hands off ownership),
// which is what guarantees ordered, non-concurrent callbacks.
func (s *subscriber[T]) drain() {
	for {
		s.h.mu.Lock()
		if s.completed || len(s.pending) == 0 {
			s.draining = false
			s.h.mu.Unlock()
			return
		}
		em := s.pending[0]

		// Nil out the slot so delivered values become collectible.
		s.pending[0] = emission[T]{}
		if len(s.pending) == 1 {
			s.pending = s.pending[:0]
		} else {
			s.pending = s.pending[1:]
		}
		s.h.mu.Unlock()

		if em.terminal {
			s.complete(em.err)
			continue
		}
		s.fn(em.value)
	}
}

// complete marks the subscription finished with the given terminal error.
func (s *subscriber[T]) complete(err error) {
	s.h.mu.Lock()
	if !s.completed {
		s.completed = true
		s.err = err
		delete(s.h.subs, s.id)
		close(s.done)
	}
	s.h.mu.Unlock()
}

// cancelSub detaches the subscriber and drops undelivered emissions.
func (s *subscriber[T]) cancelSub() {
	s.h.mu.Lock()
	if s.completed {
		s.h.mu.Unlock()
		return
	}
	s.completed = true
	s.pending = nil
	delete(s.h.subs, s.id)
	close(s.done)
	s.h.mu.Unlock()
}
