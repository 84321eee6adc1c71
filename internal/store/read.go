package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is a stored run row.
type Run struct {
	ID          string    `json:"id"`
	Goals       []string  `json:"goals"`
	Subjects    []string  `json:"subjects"`
	Parallelism int       `json:"parallelism"`
	StartedAt   time.Time `json:"started_at"`
	Status      string    `json:"status"`
	Steps       int       `json:"steps"`
	Nodes       int       `json:"nodes"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// NodeResult is a stored node_results row.
type NodeResult struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	Seq         int64  `json:"seq"`
	NodeID      string `json:"node_id"`
	Kind        string `json:"kind"`
	Product     string `json:"product"`
	SubjectType string `json:"subject_type"`
	Subject     string `json:"subject"`
	Variants    string `json:"variants,omitempty"`
	Selector    string `json:"selector"`
	Task        string `json:"task,omitempty"`
	Status      string `json:"status"`
	ValueDigest string `json:"value_digest,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Rendered    string `json:"rendered"`
}

const runColumns = `id, goals, subjects, parallelism, started_at, status, steps, nodes, error, finished_at`

const resultColumns = `id, run_id, seq, node_id, kind, product, subject_type, subject, variants, selector, task,
	status, value_digest, error_code, rendered`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadNodeResults returns every node result of a run in completion order.
func (s *Store) ReadNodeResults(ctx context.Context, runID string) ([]NodeResult, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM node_results
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
}

// ReadFailures returns the Throw results of a run in completion order.
func (s *Store) ReadFailures(ctx context.Context, runID string) ([]NodeResult, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM node_results
		WHERE run_id = ? AND status = 'Throw'
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
}

// NodeHistory returns the results recorded for one node across all runs.
func (s *Store) NodeHistory(ctx context.Context, nodeID string) ([]NodeResult, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM node_results
		WHERE node_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, nodeID)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]NodeResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query node results: %w", err)
	}
	defer rows.Close()

	results := []NodeResult{}
	for rows.Next() {
		var r NodeResult
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Seq, &r.NodeID, &r.Kind, &r.Product, &r.SubjectType,
			&r.Subject, &r.Variants, &r.Selector, &r.Task,
			&r.Status, &r.ValueDigest, &r.ErrorCode, &r.Rendered,
		); err != nil {
			return nil, fmt.Errorf("scan node result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node results: %w", err)
	}
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r                 Run
		goals, subjects   string
		started, finished string
	)
	err := row.Scan(&r.ID, &goals, &subjects, &r.Parallelism, &started,
		&r.Status, &r.Steps, &r.Nodes, &r.Error, &finished)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if r.Goals, err = unmarshalStrings(goals); err != nil {
		return Run{}, err
	}
	if r.Subjects, err = unmarshalStrings(subjects); err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}
