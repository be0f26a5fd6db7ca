package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/volition/internal/store"
	"github.com/roach88/volition/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to "state" or "news" events
	SinceSeq int64  // optional - only events after this sequence number
	Limit    int    // optional - cap the number of events returned
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq  int64           `json:"seq"`
	Kind string          `json:"kind"` // "state" or "news"
	Data json.RawMessage `json:"data"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID      string       `json:"run_id"`
	Scenario   string       `json:"scenario"`
	Feature    string       `json:"feature"`
	FinalState string       `json:"final_state"`
	Timeline   []TraceEvent `json:"timeline"`
	Stats      TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
// States and News count the events shown after filtering;
// TotalEvents counts the whole recorded trace.
type TraceStats struct {
	TotalEvents int64 `json:"total_events"`
	Shown       int   `json:"shown"`
	States      int   `json:"states"`
	News        int   `json:"news"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions, envCfg Env) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a recorded trace",
		Long: `Inspect the recorded state/news trace of a run.

Shows the timeline of state publishes and news items in fold order,
optionally filtered by kind or sequence number.

Examples:
  volition trace --db ./volition.db --run 01890a5d-ac96-774b-bcce-b302099a8057
  volition trace --db ./volition.db --run <id> --kind news
  volition trace --db ./volition.db --run <id> --since-seq 3 --limit 10
  volition trace --db ./volition.db --run <id> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envCfg.Database, "path to SQLite database (required; env VOLITION_DB)")
	if envCfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to inspect (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to event kind (state|news)")
	cmd.Flags().Int64Var(&opts.SinceSeq, "since-seq", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Kind != "" && opts.Kind != trace.KindState && opts.Kind != trace.KindNews {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be %q or %q", opts.Kind, trace.KindState, trace.KindNews))
	}

	ctx := context.Background()

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.GetRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to get run", err)
	}

	events, err := st.ReadTrace(ctx, opts.RunID, store.Filter{
		Kind:     opts.Kind,
		SinceSeq: opts.SinceSeq,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	total, err := st.CountEvents(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count events", err)
	}

	// Build timeline
	timeline := make([]TraceEvent, 0, len(events))
	stats := TraceStats{TotalEvents: total, Shown: len(events)}
	for _, ev := range events {
		timeline = append(timeline, TraceEvent{
			Seq:  ev.Seq,
			Kind: ev.Kind,
			Data: json.RawMessage(ev.Payload),
		})
		switch ev.Kind {
		case trace.KindState:
			stats.States++
		case trace.KindNews:
			stats.News++
		}
	}

	result := TraceResult{
		RunID:      run.ID,
		Scenario:   run.Scenario,
		Feature:    run.Feature,
		FinalState: run.FinalState,
		Timeline:   timeline,
		Stats:      stats,
	}

	// Output results
	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{
			Status: "ok",
			Data:   result,
			RunID:  run.ID,
		})
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", truncateID(result.RunID))
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Feature:  %s\n", result.Feature)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			fmt.Fprintf(w, "  [%d] %s %s\n", event.Seq, kindLabel(event.Kind), string(event.Data))
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Shown:        %d\n", result.Stats.Shown)
	fmt.Fprintf(w, "  States:       %d\n", result.Stats.States)
	fmt.Fprintf(w, "  News:         %d\n", result.Stats.News)
	if verbose {
		fmt.Fprintf(w, "  Final State:  %s\n", result.FinalState)
	}

	return nil
}

// kindLabel maps an event kind to its fixed-width timeline label.
func kindLabel(kind string) string {
	switch kind {
	case trace.KindState:
		return "STATE"
	case trace.KindNews:
		return "NEWS "
	default:
		return kind
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
