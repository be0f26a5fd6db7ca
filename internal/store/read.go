package store

import (
	"context"
	"fmt"
	"time"
)

// StoredEvent is one trace event as read back from the store.
// Payload is the canonical JSON produced when the event was appended.
type StoredEvent struct {
	RunID   string
	Seq     int64
	Kind    string
	Payload string
}

// ListRuns returns all recorded runs ordered by creation time, newest first.
// Ties on created_at are broken by id for deterministic ordering.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, feature, created_at, final_state
		FROM runs
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Feature, &createdAt, &run.FinalState); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// GetRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, feature, created_at, final_state
		FROM runs
		WHERE id = ?
	`, id)

	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &run.Scenario, &run.Feature, &createdAt, &run.FinalState); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}

	var err error
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}

	return run, nil
}

// ReadTrace returns the trace events for a run, filtered by f.
// Results are always ordered by seq ASC for deterministic replay.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) ReadTrace(ctx context.Context, runID string, f Filter) ([]StoredEvent, error) {
	where, args := f.buildWhere(runID)

	query := `
		SELECT run_id, seq, kind, payload
		FROM trace_events
	` + where + `
		ORDER BY seq ASC
	`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Kind, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []StoredEvent{}
	}

	return events, nil
}

// CountEvents returns the number of trace events recorded for a run.
func (s *Store) CountEvents(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trace_events WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
