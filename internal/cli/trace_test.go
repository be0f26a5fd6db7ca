package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMissingRunFlag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "run")
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "no-such-run"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestTraceInvalidKind(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "x", "--kind", "wish"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestTraceTimeline(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runID := seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", runID})

	err := cmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Scenario: cli-smoke")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, `[1] STATE "start"`)
	assert.Contains(t, out, `[2] STATE "start/inc"`)
	assert.Contains(t, out, `[3] NEWS  "bumped"`)
	assert.Contains(t, out, "Total Events: 3")
}

func TestTraceKindFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runID := seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", runID, "--kind", "news"})

	err := cmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `[3] NEWS  "bumped"`)
	assert.NotContains(t, out, "STATE")
	// Totals still cover the whole trace
	assert.Contains(t, out, "Total Events: 3")
	assert.Contains(t, out, "Shown:        1")
}

func TestTraceSinceSeqAndLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runID := seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", runID, "--since-seq", "1", "--limit", "1"})

	err := cmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `[2] STATE "start/inc"`)
	assert.NotContains(t, out, "[1]")
	assert.NotContains(t, out, "[3]")
}

func TestTraceJSONOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runID := seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", runID})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, runID, resp.RunID)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cli-smoke", data["scenario"])
	assert.Equal(t, "start/inc", data["final_state"])

	timeline, ok := data["timeline"].([]interface{})
	require.True(t, ok)
	require.Len(t, timeline, 3)

	first, ok := timeline[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "state", first["kind"])
	assert.Equal(t, "start", first["data"]) // raw payload decodes to the state string
}

func TestTraceEmptyTimelineAfterFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runID := seedRun(t, dbPath, smokeScenario, "smoke.yaml")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts, Env{})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", runID, "--since-seq", "99"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(no events)")
}
