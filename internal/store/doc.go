// Package store is the SQLite-backed run log.
//
// Each engine run writes one row to runs and one row to node_results per
// node that reached a terminal state during the run. The log is
// append-only apart from the run summary, which is filled in when the run
// finishes.
//
// Ordering uses the engine's logical sequence number, never timestamps.
// Every read orders by seq ASC, id ASC COLLATE BINARY so two reads of the
// same database return identical results.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Node and value digests come from internal/ir: canonical JSON hashed with
// SHA-256 under a domain prefix.
package store
