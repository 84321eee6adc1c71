package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/prodgraph/internal/graph"
)

// run is the state of one Execute call.
type run struct {
	engine *Engine
	id     string
	quota  *QuotaEnforcer
	queue  *workQueue

	mu   sync.Mutex
	seen map[graph.NodeKey]bool // nodes stepped at least once in this run
}

func (r *run) enqueue(nodes ...graph.Node) {
	r.queue.Push(nodes...)
}

// markStepped records that node is being stepped and reports whether it
// was stepped before in this run.
func (r *run) markStepped(key graph.NodeKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.seen[key]
	r.seen[key] = true
	return prev
}

func (r *run) stepped(key graph.NodeKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[key]
}

func (r *run) driveSerial(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		node, ok := r.queue.Pop()
		if !ok {
			return nil
		}
		next, err := r.process(ctx, node)
		if err != nil {
			return err
		}
		r.enqueue(next...)
	}
}

// driveParallel steps the ready set in rounds. Within a round each node
// appears once; at most parallelism nodes are stepped at the same time.
func (r *run) driveParallel(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(r.engine.parallelism))
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ready := r.queue.Drain()
		if len(ready) == 0 {
			return nil
		}
		slog.Debug("parallel round", "run_id", r.id, "round", round, "ready", len(ready))

		g, gctx := errgroup.WithContext(ctx)
		for _, node := range ready {
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				next, err := r.process(gctx, node)
				if err != nil {
					return err
				}
				r.enqueue(next...)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
}

// process steps one node and applies the outcome to the graph. It returns
// the nodes that became ready as a result.
func (r *run) process(ctx context.Context, node graph.Node) ([]graph.Node, error) {
	g := r.engine.graph
	if g.State(node.Key).IsTerminal() {
		return nil, nil
	}
	if err := r.quota.Check(r.id); err != nil {
		return nil, err
	}
	r.markStepped(node.Key)

	res := r.engine.step(node)

	if err := g.AddDependencies(node.Key, res.deps); err != nil {
		var ce *graph.CycleError
		if !errors.As(err, &ce) {
			return nil, fmt.Errorf("step %s: %w", node.Key, err)
		}
		slog.Warn("cyclic dependency", "run_id", r.id, "node", node.Key.String(), "path", ce.Error())
		res.state = graph.Throw(&graph.Error{
			Code:    graph.ErrCodeCyclicDependency,
			Message: fmt.Sprintf("%s depends on itself", node.Key),
			Subject: node.Key.Subject,
			Product: node.Product(),
			Cause:   ce,
		})
	}

	if res.state.IsTerminal() {
		return r.complete(ctx, node, res.state)
	}

	// Only dependencies not yet stepped in this run need scheduling; the
	// others wake this node when they complete.
	var ready []graph.Node
	waiting := 0
	for _, dep := range res.deps {
		if g.State(dep.Key).IsTerminal() {
			continue
		}
		waiting++
		if !r.stepped(dep.Key) {
			ready = append(ready, dep)
		}
	}
	// A dependency may have completed between the step reading its state
	// and the edge being recorded, in which case no wake-up is coming.
	if waiting == 0 {
		ready = append(ready, node)
	}
	return ready, nil
}

func (r *run) complete(ctx context.Context, node graph.Node, state graph.State) ([]graph.Node, error) {
	g := r.engine.graph
	if err := g.Complete(node.Key, state); err != nil {
		return nil, fmt.Errorf("step %s: %w", node.Key, err)
	}
	seq := r.engine.clock.Next()

	if state.Status == graph.StatusThrow {
		slog.Debug("node failed", "run_id", r.id, "seq", seq, "node", node.Key.String(), "error", state.Err)
	} else {
		slog.Debug("node completed", "run_id", r.id, "seq", seq, "node", node.Key.String(), "status", state.Status.String())
	}

	if rec := r.engine.recorder; rec != nil {
		if err := rec.RecordCompletion(ctx, Completion{
			RunID: r.id,
			Seq:   seq,
			Node:  node,
			State: state,
		}); err != nil {
			return nil, fmt.Errorf("record completion of %s: %w", node.Key, err)
		}
	}

	var ready []graph.Node
	for _, dependent := range g.DependentsOf(node.Key) {
		if !g.State(dependent.Key).IsTerminal() {
			ready = append(ready, dependent)
		}
	}
	return ready, nil
}
