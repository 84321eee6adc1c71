// Package scheduler turns build requests into root nodes of a product graph.
//
// A Scheduler owns one ProductGraph and one rule Registry. It is long lived:
// successive requests share the graph, so results computed for one request
// are reused by the next, and file-change invalidation (InvalidateFiles)
// resets only the affected part of the graph.
//
// Each (subject, goal product) pair becomes one root: a dependencies node
// that expands the subject (a spec) into its collection product and selects
// the goal product for every member.
package scheduler
