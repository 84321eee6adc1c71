package engine

import (
	"context"
	"time"

	"github.com/roach88/prodgraph/internal/graph"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"  // some root threw
	RunAborted   RunStatus = "aborted" // Execute returned an error
)

// RunInfo describes a run as it starts.
type RunInfo struct {
	ID          string
	Goals       []string
	Subjects    []string
	Parallelism int
	StartedAt   time.Time
}

// Completion is one node reaching a terminal state.
type Completion struct {
	RunID string
	Seq   int64
	Node  graph.Node
	State graph.State
}

// RunSummary describes a run as it finishes.
type RunSummary struct {
	ID         string
	Status     RunStatus
	Steps      int
	Nodes      int
	Error      string
	FinishedAt time.Time
}

// Recorder receives the events of each run. A recorder error aborts the run.
//
// With the parallel driver RecordCompletion is called from several
// goroutines at once.
type Recorder interface {
	RecordRunStart(ctx context.Context, run RunInfo) error
	RecordCompletion(ctx context.Context, c Completion) error
	RecordRunFinish(ctx context.Context, summary RunSummary) error
}
