package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/volition/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunInfo describes one recorded run for listing output.
type RunInfo struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	Feature    string `json:"feature"`
	CreatedAt  string `json:"created_at"`
	FinalState string `json:"final_state"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions, envCfg Env) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List runs recorded in the trace database, newest first.

Examples:
  volition runs --db ./volition.db
  volition runs --db ./volition.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envCfg.Database, "path to SQLite database (required; env VOLITION_DB)")
	if envCfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}

	return cmd
}

func runListRuns(opts *RunsOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, RunInfo{
			ID:         run.ID,
			Scenario:   run.Scenario,
			Feature:    run.Feature,
			CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
			FinalState: run.FinalState,
		})
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{
			Status: "ok",
			Data:   infos,
		})
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	for _, info := range infos {
		fmt.Fprintf(w, "%s  %s  %s\n", truncateID(info.ID), info.CreatedAt, info.Scenario)
		if opts.Verbose {
			fmt.Fprintf(w, "  Feature:     %s\n", info.Feature)
			fmt.Fprintf(w, "  Final state: %s\n", info.FinalState)
			fmt.Fprintf(w, "  Full ID:     %s\n", info.ID)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d run(s)\n", len(infos))
	return nil
}
