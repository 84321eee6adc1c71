package store

import (
	"context"
	"fmt"

	"github.com/roach88/prodgraph/internal/engine"
)

var _ engine.Recorder = (*Store)(nil)

// RecordRunStart inserts the run row. A run ID that already exists is an
// error: run IDs are generated fresh for every Execute call.
func (s *Store) RecordRunStart(ctx context.Context, run engine.RunInfo) error {
	goals, err := marshalStrings(run.Goals)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	subjects, err := marshalStrings(run.Subjects)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, goals, subjects, parallelism, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		goals,
		subjects,
		run.Parallelism,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// RecordCompletion inserts one node result. Writing the same node twice in
// one run is silently ignored.
//
// Safe for concurrent use: the pool holds a single connection.
func (s *Store) RecordCompletion(ctx context.Context, c engine.Completion) error {
	key := c.Node.Key
	nodeID := NodeID(key)
	valueDigest, errorCode, rendered := stateColumns(c.State)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_results
		(id, run_id, seq, node_id, kind, product, subject_type, subject, variants, selector, task,
		 status, value_digest, error_code, rendered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		resultID(c.RunID, nodeID),
		c.RunID,
		c.Seq,
		nodeID,
		string(key.Kind),
		string(c.Node.Product()),
		string(key.SubjectType),
		key.Subject,
		key.Variants,
		key.Selector,
		key.Task,
		c.State.Status.String(),
		valueDigest,
		errorCode,
		rendered,
	)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// RecordRunFinish fills in the run summary.
func (s *Store) RecordRunFinish(ctx context.Context, summary engine.RunSummary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, steps = ?, nodes = ?, error = ?, finished_at = ?
		WHERE id = ?
	`,
		string(summary.Status),
		summary.Steps,
		summary.Nodes,
		summary.Error,
		formatTime(summary.FinishedAt),
		summary.ID,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record run finish: unknown run %q", summary.ID)
	}
	return nil
}
