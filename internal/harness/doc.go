// Package harness runs YAML build scenarios against a real build root.
//
// A scenario names a build root and a sequence of builds. Each build runs
// the goals over the given specs through the planners rule set, the
// scheduler and the engine, sharing one warm product graph across builds,
// so later builds observe memoization and invalidation. Node completions
// are recorded into an in-memory run log and the scenario's assertions are
// evaluated against it.
//
// Run IDs are fixed ("run-1", "run-2", ...) and the sequence clock starts
// at zero, so a scenario run serially produces the same trace every time.
// Golden snapshots sort nodes and are independent of completion order.
package harness
