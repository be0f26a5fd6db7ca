// Package trace records the externally observable output of a feature -
// state snapshots and news items - as an ordered, canonically
// serializable event log.
//
// A Recorder is a plain subscriber: it attaches to a feature's output
// channels (normally the Background views, so recording adds no
// scheduling hop) and is otherwise invisible to the engine. The
// conformance harness asserts on recorded traces and compares their
// canonical JSON against golden files; the CLI persists them through
// the store package.
package trace

import "sync"

// Event kinds.
const (
	KindState = "state"
	KindNews  = "news"
)

// Event is one recorded observation.
type Event struct {
	// Kind is KindState or KindNews.
	Kind string

	// Seq is the recorder-assigned arrival index, starting at 1.
	// It reflects delivery order at the recorder, which for Background
	// subscriptions is exactly publication order.
	Seq int64

	// Data is the observed payload in canonicalizable form
	// (string / int / bool / []any / map[string]any).
	Data any
}

// Recorder accumulates events from any number of subscriptions.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, so state and news subscriptions may record interleaved.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	seq    int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an event of the given kind.
func (r *Recorder) Record(kind string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.events = append(r.events, Event{Kind: kind, Seq: r.seq, Data: data})
}

// Events returns a copy of everything recorded so far, in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Canonical serializes the whole trace as one canonical JSON array.
// The bytes are stable across runs that observed the same values, which
// is the property golden-file comparison relies on.
func (r *Recorder) Canonical() ([]byte, error) {
	events := r.Events()
	arr := make([]any, len(events))
	for i, e := range events {
		arr[i] = map[string]any{
			"kind": e.Kind,
			"seq":  e.Seq,
			"data": e.Data,
		}
	}
	return MarshalCanonical(arr)
}

// Sink adapts the recorder to a typed subscriber callback: encode maps
// the stream's value to a canonicalizable payload. Pass the result
// straight to Subscribe:
//
//	states.Background().Subscribe(trace.Sink(rec, trace.KindState, encodeState))
func Sink[T any](r *Recorder, kind string, encode func(T) any) func(T) {
	return func(v T) {
		r.Record(kind, encode(v))
	}
}
