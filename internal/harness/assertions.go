package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/volition"
	"github.com/roach88/volition/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Events   []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Events {
		fmt.Fprintf(&buf, "  [%d] %s %v\n", ev.Seq, ev.Kind, ev.Data)
	}

	return buf.String()
}

// assertFinalState checks the feature's final state value.
func assertFinalState(r *Result, a Assertion) error {
	if r.FinalState == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("final state %q", a.Value),
		Actual:   fmt.Sprintf("final state %q", r.FinalState),
		Events:   r.Events,
	}
}

// assertStateCount checks the number of recorded state emissions.
func assertStateCount(r *Result, a Assertion) error {
	count := len(r.StateValues())
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStateCount,
		Expected: fmt.Sprintf("%d state emissions", a.Count),
		Actual:   fmt.Sprintf("%d state emissions", count),
		Events:   r.Events,
	}
}

// assertStateContains checks that a state value appears in the trace.
func assertStateContains(r *Result, a Assertion) error {
	for _, s := range r.StateValues() {
		if s == a.Value {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertStateContains,
		Expected: fmt.Sprintf("state %q in trace", a.Value),
		Actual:   "not found in trace",
		Events:   r.Events,
	}
}

// assertNewsOrder checks the exact sequence of published news items.
func assertNewsOrder(r *Result, a Assertion) error {
	news := r.NewsValues()

	match := len(news) == len(a.Values)
	if match {
		for i := range news {
			if news[i] != a.Values[i] {
				match = false
				break
			}
		}
	}
	if match {
		return nil
	}

	return &AssertionError{
		Type:     AssertNewsOrder,
		Expected: fmt.Sprintf("news sequence %v", a.Values),
		Actual:   fmt.Sprintf("news sequence %v", news),
		Events:   r.Events,
	}
}

// assertNewsContains checks that a news item appears in the trace.
func assertNewsContains(r *Result, a Assertion) error {
	for _, n := range r.NewsValues() {
		if n == a.Value {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertNewsContains,
		Expected: fmt.Sprintf("news %q in trace", a.Value),
		Actual:   "not found in trace",
		Events:   r.Events,
	}
}

// assertFailure checks that the feature tore down fatally, optionally
// at a specific stage.
func assertFailure(r *Result, a Assertion) error {
	if r.Failure == nil {
		return &AssertionError{
			Type:     AssertFailure,
			Expected: "fatal teardown",
			Actual:   "feature completed healthy",
			Events:   r.Events,
		}
	}

	if a.Stage != "" && !volition.FailureAt(r.Failure, volition.FailureStage(a.Stage)) {
		return &AssertionError{
			Type:     AssertFailure,
			Expected: fmt.Sprintf("failure at stage %s", a.Stage),
			Actual:   r.Failure.Error(),
			Events:   r.Events,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertStateCount:
			err = assertStateCount(result, assertion)
		case AssertStateContains:
			err = assertStateContains(result, assertion)
		case AssertNewsOrder:
			err = assertNewsOrder(result, assertion)
		case AssertNewsContains:
			err = assertNewsContains(result, assertion)
		case AssertFailure:
			err = assertFailure(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
