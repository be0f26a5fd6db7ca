package store

import "strings"

// Filter narrows a trace read.
// Zero value matches every event for the run.
type Filter struct {
	// Kind restricts results to one event kind ("state" or "news").
	// Empty means both kinds.
	Kind string

	// SinceSeq restricts results to events with seq greater than this value.
	// Zero means from the beginning.
	SinceSeq int64

	// Limit caps the number of returned events. Zero means no limit.
	Limit int
}

// buildWhere compiles the filter to a WHERE clause and parameter list.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (f Filter) buildWhere(runID string) (string, []any) {
	parts := []string{"run_id = ?"}
	args := []any{runID}

	if f.Kind != "" {
		parts = append(parts, "kind = ?")
		args = append(args, f.Kind)
	}

	if f.SinceSeq > 0 {
		parts = append(parts, "seq > ?")
		args = append(args, f.SinceSeq)
	}

	return " WHERE " + strings.Join(parts, " AND "), args
}
