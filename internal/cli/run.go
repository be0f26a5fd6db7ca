package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/volition/internal/harness"
	"github.com/roach88/volition/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary holds the outcome of a persisted scenario run.
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Scenario   string   `json:"scenario"`
	Feature    string   `json:"feature"`
	FinalState string   `json:"final_state"`
	Events     int      `json:"events"`
	Pass       bool     `json:"pass"`
	Errors     []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, envCfg Env) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a scenario and record its trace",
		Long: `Run a single scenario through the harness and record the trace.

The scenario's scripted feature executes on the engine, and the recorded
state/news trace is persisted to a SQLite database (creating it if it
doesn't exist) under a fresh run ID. Use the trace command to inspect
recorded runs.

Example:
  volition run --db ./volition.db ./scenarios/counter-basic.yaml
  volition run --db /tmp/test.db ./scenarios/counter-basic.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioPersist(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envCfg.Database, "path to SQLite database (required; env VOLITION_DB)")
	if envCfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}

	return cmd
}

func runScenarioPersist(opts *RunOptions, scenarioFile string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	// Load scenario
	slog.Info("loading scenario", "file", scenarioFile)
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// Run scenario on the engine
	slog.Info("running scenario", "scenario", scenario.Name)
	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}
	slog.Info("scenario settled", "final_state", result.FinalState, "events", len(result.Events), "pass", result.Pass)

	// Open database (create if not exists)
	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	featureName := scenario.Feature.Name
	if featureName == "" {
		featureName = scenario.Name
	}

	run := store.Run{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Scenario:   scenario.Name,
		Feature:    featureName,
		CreatedAt:  time.Now().UTC(),
		FinalState: result.FinalState,
	}

	// Persist the trace even when assertions failed: a failing trace is
	// exactly the one worth inspecting later.
	if err := st.SaveTrace(context.Background(), run, result.Events); err != nil {
		return WrapExitError(ExitCommandError, "failed to save trace", err)
	}
	slog.Info("trace saved", "run_id", run.ID, "events", len(result.Events))

	summary := RunSummary{
		RunID:      run.ID,
		Scenario:   scenario.Name,
		Feature:    featureName,
		FinalState: result.FinalState,
		Events:     len(result.Events),
		Pass:       result.Pass,
		Errors:     result.Errors,
	}

	if err := outputRunSummary(opts, summary, cmd); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// outputRunSummary outputs the run summary in the configured format.
func outputRunSummary(opts *RunOptions, summary RunSummary, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	if opts.Format == "json" {
		status := "ok"
		var cliErr *CLIError
		if !summary.Pass {
			status = "error"
			cliErr = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("scenario %s failed", summary.Scenario),
				Details: summary.Errors,
			}
		}
		return encodeIndented(w, CLIResponse{
			Status: status,
			Data:   summary,
			Error:  cliErr,
			RunID:  summary.RunID,
		})
	}

	if summary.Pass {
		fmt.Fprintf(w, "✓ %s\n", summary.Scenario)
	} else {
		fmt.Fprintf(w, "✗ %s\n", summary.Scenario)
		for _, e := range summary.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "Run ID:      %s\n", summary.RunID)
	fmt.Fprintf(w, "Final state: %s\n", summary.FinalState)
	fmt.Fprintf(w, "Events:      %d\n", summary.Events)
	return nil
}
