// Package harness provides scenario-driven conformance testing for the
// feature engine.
//
// The harness loads scripted feature definitions from YAML, wires them
// into a real engine instance, drives the accepted wishes through it,
// and validates the recorded state/news trace against assertions and
// golden snapshots.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	feature:
//	  initial_state: start
//	  bootstrap: [seed]          # optional initial actions
//	  actions:
//	    increment: [inc]         # action -> emitted effects
//	  news:
//	    inc: incremented         # effect -> news item (optional)
//	  followups:
//	    stepped: finish          # effect -> follow-up action (optional)
//	  max_chain_depth: 8         # optional feedback-loop guard
//	wishes: [increment, increment]
//	assertions:
//	  - type: final_state
//	    value: start/inc/inc
//	  - type: news_order
//	    values: [incremented, incremented]
//
// The scripted feature is deliberately simple: state is the "/"-joined
// history of applied effects, wishes map to actions by identity, and the
// actor resolves actions through the scenario's actions table. Simple as
// it is, every scenario exercises the real execution core: serialized
// folds, bootstrap dispatch, post-processor feedback and news publishing
// all run through the same code paths production features use.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - final_state: Verifies the feature's final state value
//   - state_count: Verifies the number of recorded state emissions
//   - state_contains: Verifies a state value appears in the trace
//   - news_order: Verifies the exact sequence of news items
//   - news_contains: Verifies a news item appears in the trace
//   - failure: Verifies the feature tore down fatally (optionally at a stage)
//
// # Deterministic Testing
//
// Scenarios execute single-threaded: the engine runs on a manual
// scheduler pumped by the harness, actors emit pre-buffered effect
// channels, and chain tokens come from a sequential source. Identical
// scenarios therefore produce byte-identical traces, which makes golden
// file comparison meaningful.
//
// Scenario YAML is validated against an embedded CUE schema before
// decoding, so malformed files fail with a schema error rather than a
// zero-valued scenario.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
