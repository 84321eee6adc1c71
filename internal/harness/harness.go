package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/prodgraph/internal/engine"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/planners"
	"github.com/roach88/prodgraph/internal/scheduler"
	"github.com/roach88/prodgraph/internal/store"
)

// Harness holds the state shared by the builds of one scenario.
type Harness struct {
	store  *store.Store
	sched  *scheduler.Scheduler
	engine *engine.Engine
}

// Run executes a scenario and returns the result. A returned error means
// the scenario could not be run at all; build and assertion failures are
// reported in the Result.
//
// Each scenario runs against a fresh in-memory run log.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sched, err := planners.NewScheduler(os.DirFS(scenario.Root))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	runIDs := make([]string, len(scenario.Builds))
	for i := range runIDs {
		runIDs[i] = fmt.Sprintf("run-%d", i+1)
	}

	h := &Harness{
		store: st,
		sched: sched,
		engine: engine.New(sched,
			engine.WithRecorder(st),
			engine.WithRunIDGenerator(engine.NewFixedGenerator(runIDs...)),
			engine.WithClock(engine.NewClock()),
			engine.WithParallelism(max(scenario.Parallelism, 1))),
	}

	result := NewResult()
	for i, step := range scenario.Builds {
		if err := h.executeBuild(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("build %d: %w", i, err)
		}
	}

	if err := h.collectTrace(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"builds", len(result.Builds),
		"events", len(result.Trace),
		"pass", result.Pass)
	return result, nil
}

func (h *Harness) executeBuild(ctx context.Context, index int, step BuildStep, result *Result) error {
	if len(step.Invalidate) > 0 {
		n, err := h.sched.InvalidateFiles(step.Invalidate)
		if err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
		slog.Debug("invalidated", "build", index, "files", len(step.Invalidate), "nodes", n)
	}

	subjects, err := planners.ParseSubjects(step.Specs)
	if err != nil {
		return err
	}
	req, err := h.sched.BuildRequest(step.Goals, subjects)
	if err != nil {
		return err
	}

	res, err := h.engine.Execute(ctx, req)
	if err != nil {
		return err
	}

	outcome := BuildOutcome{RunID: res.RunID, Status: StatusSucceeded, Steps: res.Steps}
	for _, root := range res.Roots {
		if root.State.Status != graph.StatusThrow {
			continue
		}
		outcome.Status = StatusFailed
		cause := graph.RootCause(root.State.Err)
		outcome.Errors = append(outcome.Errors, cause.Error())
		outcome.Codes = append(outcome.Codes, string(graph.CodeOf(cause)))
	}
	result.Builds = append(result.Builds, outcome)

	checkExpect(index, step.Expect, outcome, result)
	return nil
}

func checkExpect(index int, expect *ExpectClause, outcome BuildOutcome, result *Result) {
	want := StatusSucceeded
	if expect != nil {
		want = expect.Status
	}
	if outcome.Status != want {
		msg := fmt.Sprintf("build %d: expected %s, got %s", index, want, outcome.Status)
		if len(outcome.Errors) > 0 {
			msg += ": " + outcome.Errors[0]
		}
		result.AddError(msg)
		return
	}
	if expect != nil && expect.ErrorCode != "" && !slices.Contains(outcome.Codes, expect.ErrorCode) {
		result.AddError(fmt.Sprintf("build %d: expected error code %s, got %v",
			index, expect.ErrorCode, outcome.Codes))
	}
}

func (h *Harness) collectTrace(ctx context.Context, result *Result) error {
	for i, outcome := range result.Builds {
		rows, err := h.store.ReadNodeResults(ctx, outcome.RunID)
		if err != nil {
			return fmt.Errorf("read trace: %w", err)
		}
		for _, r := range rows {
			result.Trace = append(result.Trace, TraceEvent{
				Build:    i,
				Seq:      r.Seq,
				Kind:     r.Kind,
				Product:  r.Product,
				Subject:  r.Subject,
				Variants: r.Variants,
				Task:     r.Task,
				Status:   r.Status,
				Rendered: r.Rendered,
			})
		}
	}
	return nil
}
