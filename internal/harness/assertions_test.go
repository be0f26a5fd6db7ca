package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/volition"
	"github.com/roach88/volition/internal/trace"
)

// traceResult builds a Result with a canned trace for assertion tests.
func traceResult() *Result {
	r := NewResult()
	r.FinalState = "start/a/b"
	r.Events = []trace.Event{
		{Kind: trace.KindState, Seq: 1, Data: "start"},
		{Kind: trace.KindState, Seq: 2, Data: "start/a"},
		{Kind: trace.KindNews, Seq: 3, Data: "first"},
		{Kind: trace.KindState, Seq: 4, Data: "start/a/b"},
		{Kind: trace.KindNews, Seq: 5, Data: "second"},
	}
	return r
}

func TestAssertFinalState(t *testing.T) {
	r := traceResult()

	assert.NoError(t, assertFinalState(r, Assertion{Type: AssertFinalState, Value: "start/a/b"}))

	err := assertFinalState(r, Assertion{Type: AssertFinalState, Value: "start/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"start/x"`)
	assert.Contains(t, err.Error(), `"start/a/b"`)
}

func TestAssertStateCount(t *testing.T) {
	r := traceResult()

	assert.NoError(t, assertStateCount(r, Assertion{Type: AssertStateCount, Count: 3}))

	err := assertStateCount(r, Assertion{Type: AssertStateCount, Count: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5 state emissions")
	assert.Contains(t, err.Error(), "3 state emissions")
}

func TestAssertStateContains(t *testing.T) {
	r := traceResult()

	assert.NoError(t, assertStateContains(r, Assertion{Type: AssertStateContains, Value: "start/a"}))

	err := assertStateContains(r, Assertion{Type: AssertStateContains, Value: "start/z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")

	// News values don't satisfy state assertions
	err = assertStateContains(r, Assertion{Type: AssertStateContains, Value: "first"})
	require.Error(t, err)
}

func TestAssertNewsOrder(t *testing.T) {
	r := traceResult()

	assert.NoError(t, assertNewsOrder(r, Assertion{Type: AssertNewsOrder, Values: []string{"first", "second"}}))

	// Wrong order
	err := assertNewsOrder(r, Assertion{Type: AssertNewsOrder, Values: []string{"second", "first"}})
	require.Error(t, err)

	// Missing item
	err = assertNewsOrder(r, Assertion{Type: AssertNewsOrder, Values: []string{"first"}})
	require.Error(t, err)

	// Empty expectation against silence passes
	silent := NewResult()
	assert.NoError(t, assertNewsOrder(silent, Assertion{Type: AssertNewsOrder, Values: []string{}}))

	// Empty expectation against noise fails
	err = assertNewsOrder(r, Assertion{Type: AssertNewsOrder, Values: []string{}})
	require.Error(t, err)
}

func TestAssertNewsContains(t *testing.T) {
	r := traceResult()

	assert.NoError(t, assertNewsContains(r, Assertion{Type: AssertNewsContains, Value: "second"}))

	err := assertNewsContains(r, Assertion{Type: AssertNewsContains, Value: "third"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
}

func TestAssertFailure(t *testing.T) {
	healthy := traceResult()

	err := assertFailure(healthy, Assertion{Type: AssertFailure})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature completed healthy")

	failed := traceResult()
	failed.Failure = &volition.FailureError{
		Feature: "f",
		Stage:   volition.StagePostProcessor,
		Message: "boom",
	}

	// Any-stage match
	assert.NoError(t, assertFailure(failed, Assertion{Type: AssertFailure}))

	// Exact stage match
	assert.NoError(t, assertFailure(failed, Assertion{Type: AssertFailure, Stage: "POST_PROCESSOR"}))

	// Stage mismatch
	err = assertFailure(failed, Assertion{Type: AssertFailure, Stage: "ACTOR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure at stage ACTOR")
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	r := traceResult()

	msgs := EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, Value: "start/a/b"}, // passes
		{Type: AssertStateCount, Count: 99},          // fails
		{Type: AssertNewsContains, Value: "third"},   // fails
	})

	assert.Len(t, msgs, 2)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	r := traceResult()

	msgs := EvaluateAssertions(r, []Assertion{{Type: "mystery"}})
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `unknown assertion type "mystery"`)
}

func TestAssertionError_FormatIncludesTrace(t *testing.T) {
	err := assertFinalState(traceResult(), Assertion{Type: AssertFinalState, Value: "nope"})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)

	msg := ae.Error()
	assert.Contains(t, msg, "Assertion failed: final_state")
	assert.Contains(t, msg, "Expected:")
	assert.Contains(t, msg, "Actual:")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "[1] state start")
	assert.Contains(t, msg, "[3] news first")
}
