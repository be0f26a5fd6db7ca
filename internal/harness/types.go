package harness

import "github.com/roach88/volition/internal/trace"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions held.
	Pass bool `json:"pass"`

	// FinalState is the feature's state when the run settled.
	FinalState string `json:"final_state"`

	// Events is the recorded state/news trace in publish order.
	// Used for trace assertions and golden comparison.
	Events []trace.Event `json:"events"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failure is the fatal teardown error if the feature died, nil for
	// a healthy run. Scenarios that trip the depth guard assert on it.
	Failure error `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Events: []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// StateValues returns the recorded state emissions in order.
func (r *Result) StateValues() []string {
	return r.values(trace.KindState)
}

// NewsValues returns the recorded news items in order.
func (r *Result) NewsValues() []string {
	return r.values(trace.KindNews)
}

func (r *Result) values(kind string) []string {
	out := []string{}
	for _, ev := range r.Events {
		if ev.Kind != kind {
			continue
		}
		if s, ok := ev.Data.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
