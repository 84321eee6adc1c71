// Package engine drives product graph nodes to terminal states.
//
// Execute seeds a work-list with a request's root nodes and repeatedly steps
// nodes until the work-list is empty. Stepping a Waiting node either
// discovers the dependency nodes it still needs (recorded as edges, after
// which the node sleeps until one of them completes) or combines
// already-terminal dependency states into the node's own Return, Throw or
// Noop.
//
// Two drivers share the same stepping code:
//   - serial (default): one node at a time, FIFO
//   - parallel (WithParallelism > 1): rounds of ready nodes, bounded by a semaphore
//
// The graph enforces the serialization boundary (exactly-once completion,
// edges only while Waiting) per node, so the parallel driver needs no global
// lock around state transitions.
//
// Termination is guaranteed by cycle detection on edge insertion plus a
// per-run step budget (WithMaxSteps).
package engine
