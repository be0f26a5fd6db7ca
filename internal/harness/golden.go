package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/volition/internal/trace"
)

// TraceSnapshot captures the complete observable outcome of a scenario
// execution. Serialized with canonical JSON for deterministic
// comparison.
type TraceSnapshot struct {
	Scenario   string
	FinalState string
	Events     []trace.Event
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for
// canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		events[i] = map[string]any{
			"kind": ev.Kind,
			"seq":  ev.Seq,
			"data": ev.Data,
		}
	}

	return map[string]any{
		"scenario":    s.Scenario,
		"final_state": s.FinalState,
		"trace":       events,
	}
}

// Canonical serializes the snapshot to canonical JSON bytes.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return trace.MarshalCanonical(s.toCanonicalMap())
}

// Snapshot builds the golden-comparable snapshot of a run.
func Snapshot(scenarioName string, result *Result) *TraceSnapshot {
	return &TraceSnapshot{
		Scenario:   scenarioName,
		FinalState: result.FinalState,
		Events:     result.Events,
	}
}

// RunWithGolden executes a scenario and compares the trace snapshot
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected trace
// behavior. Test failure (via goldie) occurs if the snapshot doesn't
// match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}

	return result, nil
}

// AssertGolden compares a result's trace snapshot against the golden
// file named after the scenario. Useful when the result was produced
// elsewhere and only the comparison is needed.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
