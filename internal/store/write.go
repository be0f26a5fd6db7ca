package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/volition/internal/trace"
)

// timeLayout is RFC 3339 UTC with fixed-width nanoseconds. RFC3339Nano
// trims trailing fraction zeros, which breaks lexicographic ordering on
// the created_at column; fixed width keeps string order equal to time
// order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is a single recorded execution of a scenario against a feature.
// FinalState holds the feature's last observed state as it rendered it;
// event payloads, not this field, carry the canonical JSON.
type Run struct {
	ID         string
	Scenario   string
	Feature    string
	CreatedAt  time.Time
	FinalState string
}

// InsertRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., NOT NULL) will still return errors.
func (s *Store) InsertRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, feature, created_at, final_state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.Feature,
		run.CreatedAt.UTC().Format(timeLayout),
		run.FinalState,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// AppendEvent inserts one trace event for a run.
// The payload is serialized to canonical JSON per RFC 8785 for
// deterministic byte comparison.
//
// Uses ON CONFLICT DO NOTHING for idempotency - re-appending the same
// (run_id, seq) pair is silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, runID string, ev trace.Event) error {
	payload, err := trace.MarshalCanonical(ev.Data)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, kind, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		ev.Seq,
		ev.Kind,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// SaveTrace writes a run and all of its recorded events in a single
// transaction. Either the whole trace lands or none of it does.
func (s *Store) SaveTrace(ctx context.Context, run Run, events []trace.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, feature, created_at, final_state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.Feature,
		run.CreatedAt.UTC().Format(timeLayout),
		run.FinalState,
	)
	if err != nil {
		return fmt.Errorf("save trace: insert run: %w", err)
	}

	for _, ev := range events {
		payload, err := trace.MarshalCanonical(ev.Data)
		if err != nil {
			return fmt.Errorf("save trace: event %d: %w", ev.Seq, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO trace_events
			(run_id, seq, kind, payload)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			run.ID, ev.Seq, ev.Kind, string(payload),
		)
		if err != nil {
			return fmt.Errorf("save trace: event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save trace: commit: %w", err)
	}

	return nil
}
