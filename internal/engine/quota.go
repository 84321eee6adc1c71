package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// QuotaEnforcer counts node steps in one run and enforces a maximum.
//
// Cycle detection guarantees no node waits on itself; the quota catches the
// other runaway shape, a rule set that keeps discovering new nodes.
//
// Thread-safety: safe for concurrent use by the parallel driver.
type QuotaEnforcer struct {
	maxSteps int
	current  atomic.Int64
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step and returns a StepsExceededError once the count
// passes the limit.
func (q *QuotaEnforcer) Check(runID string) error {
	n := int(q.current.Add(1))
	if n > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: n,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the number of steps counted so far.
func (q *QuotaEnforcer) Current() int {
	return int(q.current.Load())
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError aborts a run that exceeded its step budget.
type StepsExceededError struct {
	RunID string
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err wraps a *StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
