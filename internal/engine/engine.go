package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
	"github.com/roach88/prodgraph/internal/scheduler"
)

// DefaultMaxSteps is the default maximum number of node steps per run.
// This prevents a misbehaving rule set from stepping forever.
const DefaultMaxSteps = 100_000

// ErrRootsWaiting is returned when the work-list drains while a root is
// still Waiting. It indicates an engine fault, never a build condition.
var ErrRootsWaiting = errors.New("work-list drained with waiting roots")

const tracerName = "github.com/roach88/prodgraph/internal/engine"

// RunIDGenerator generates unique run IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Engine executes build requests against a scheduler's graph.
//
// An Engine holds no per-run state, so one Engine may serve many sequential
// runs over the same warm graph. Concurrent Execute calls on one graph are
// not supported.
type Engine struct {
	sched       *scheduler.Scheduler
	graph       *graph.ProductGraph
	registry    *rules.Registry
	clock       *Clock
	runIDs      RunIDGenerator
	recorder    Recorder
	maxSteps    int
	parallelism int
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the maximum node steps per run.
//
// Default: DefaultMaxSteps.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithRecorder installs a recorder for run start, node completions and
// run finish.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithParallelism sets how many nodes may be stepped at once.
// 0 or 1 selects the serial driver.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithClock sets the logical clock stamping completions.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over the scheduler's graph and registry.
func New(sched *scheduler.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		sched:    sched,
		graph:    sched.Graph(),
		registry: sched.Registry(),
		clock:    NewClock(),
		runIDs:   UUIDv7Generator{},
		maxSteps: DefaultMaxSteps,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RootResult is the terminal state of one root.
type RootResult struct {
	Node  graph.Node
	State graph.State
}

// BuildResult reports one run.
type BuildResult struct {
	RunID string
	// Roots holds one entry per request root, in request order.
	Roots []RootResult
	// Error is set when any root resolved to Throw. It joins the root
	// failures; partial results in Roots remain usable.
	Error error
	// Steps is the number of node steps taken.
	Steps int
}

// Failed reports whether any root threw.
func (r *BuildResult) Failed() bool { return r.Error != nil }

// Execute drives every node reachable from req's roots to a terminal state.
//
// Node failures are reported in the result, never as the returned error.
// The returned error is reserved for structural faults (a broken rule or
// engine), an exceeded step budget, context cancellation and a recorder
// failure; any of these aborts the run.
func (e *Engine) Execute(ctx context.Context, req *scheduler.BuildRequest) (*BuildResult, error) {
	r := &run{
		engine: e,
		id:     e.runIDs.Generate(),
		quota:  NewQuotaEnforcer(e.maxSteps),
		queue:  newWorkQueue(),
		seen:   make(map[graph.NodeKey]bool),
	}

	ctx, span := e.tracer.Start(ctx, "prodgraph.execute", trace.WithAttributes(
		attribute.String("prodgraph.run_id", r.id),
		attribute.Int("prodgraph.roots", len(req.Roots)),
		attribute.Int("prodgraph.parallelism", e.parallelism),
	))
	defer span.End()

	if e.recorder != nil {
		subjects := make([]string, len(req.Subjects))
		for i, s := range req.Subjects {
			subjects[i] = graph.SubjectKey(s)
		}
		if err := e.recorder.RecordRunStart(ctx, RunInfo{
			ID:          r.id,
			Goals:       req.Goals,
			Subjects:    subjects,
			Parallelism: e.parallelism,
			StartedAt:   time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	slog.Debug("run started", "run_id", r.id, "roots", len(req.Roots), "parallelism", e.parallelism)

	for _, root := range req.Roots {
		root = e.graph.GetOrCreate(root)
		if !e.graph.State(root.Key).IsTerminal() {
			r.enqueue(root)
		}
	}

	var err error
	if e.parallelism > 1 {
		err = r.driveParallel(ctx)
	} else {
		err = r.driveSerial(ctx)
	}

	result := &BuildResult{RunID: r.id, Steps: r.quota.Current()}
	var failures []error
	waiting := 0
	for _, root := range req.Roots {
		state := e.graph.State(root.Key)
		result.Roots = append(result.Roots, RootResult{Node: root, State: state})
		switch state.Status {
		case graph.StatusThrow:
			failures = append(failures, state.Err)
		case graph.StatusWaiting:
			waiting++
		}
	}
	result.Error = errors.Join(failures...)
	if err == nil && waiting > 0 {
		err = fmt.Errorf("%w: %d of %d", ErrRootsWaiting, waiting, len(req.Roots))
	}

	span.SetAttributes(
		attribute.Int("prodgraph.steps", result.Steps),
		attribute.Bool("prodgraph.failed", result.Failed()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if e.recorder != nil {
		summary := RunSummary{
			ID:         r.id,
			Status:     runStatus(result, err),
			Steps:      result.Steps,
			Nodes:      e.graph.Len(),
			FinishedAt: time.Now().UTC(),
		}
		switch {
		case err != nil:
			summary.Error = err.Error()
		case result.Error != nil:
			summary.Error = result.Error.Error()
		}
		// A cancelled run is still recorded as aborted.
		if rerr := e.recorder.RecordRunFinish(context.WithoutCancel(ctx), summary); rerr != nil {
			if err == nil {
				err = fmt.Errorf("record run finish: %w", rerr)
			} else {
				slog.Warn("failed to record run finish", "run_id", r.id, "error", rerr)
			}
		}
	}

	if err != nil {
		slog.Error("run aborted", "run_id", r.id, "steps", result.Steps, "error", err)
		return result, err
	}
	slog.Info("run finished",
		"run_id", r.id,
		"steps", result.Steps,
		"nodes", e.graph.Len(),
		"failed", result.Failed())
	return result, nil
}

func runStatus(result *BuildResult, err error) RunStatus {
	switch {
	case err != nil:
		return RunAborted
	case result.Failed():
		return RunFailed
	default:
		return RunSucceeded
	}
}
