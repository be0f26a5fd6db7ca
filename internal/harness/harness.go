package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/volition"
	"github.com/roach88/volition/internal/testutil"
	"github.com/roach88/volition/internal/trace"
)

// Run executes a scenario against a real engine instance and returns
// the result.
//
// Execution is fully deterministic and single-threaded: the execution
// core runs on a manual scheduler pumped between dispatches, the
// scripted actor emits pre-buffered effect channels, observation is
// inline, and chain tokens are sequential. Identical scenarios produce
// identical traces.
//
// Execution flow:
//  1. Build the scripted feature on a manual core scheduler
//  2. Subscribe the trace recorder to the state and news channels
//  3. Settle bootstrap actions, then accept each wish and settle it
//  4. Evaluate assertions against the recorded trace and final state
//
// The recorder subscribes before the first pump, while any bootstrap
// work is still queued on the manual scheduler. The first recorded
// state is therefore always the replayed initial state, and bootstrap
// folds appear in the trace like any other.
func Run(scenario *Scenario) (*Result, error) {
	core := testutil.NewManualScheduler()
	cfg := buildConfig(scenario.Feature, scenario.Name, core)

	var failure error
	f, err := volition.New(cfg,
		volition.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		volition.WithTokenSource(&seqSource{}),
		volition.WithFailureHandler(func(err error) { failure = err }),
		volition.WithMaxChainDepth(scenario.Feature.MaxChainDepth),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build feature: %w", err)
	}
	defer f.Dispose()

	recorder := trace.NewRecorder()

	stateSub := f.States().Subscribe(trace.Sink(recorder, trace.KindState, func(s string) any { return s }))
	defer stateSub.Cancel()

	newsSub := f.News().Subscribe(trace.Sink(recorder, trace.KindNews, func(n string) any { return n }))
	defer newsSub.Cancel()

	// Bootstrap actions queued during construction settle first.
	core.Drain()

	for _, wish := range scenario.Wishes {
		f.Accept(wish)
		core.Drain()
	}

	result := NewResult()
	result.FinalState = f.State()
	result.Events = recorder.Events()
	result.Failure = failure

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// RunFile loads a scenario from a YAML file and executes it.
func RunFile(path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(scenario)
}
