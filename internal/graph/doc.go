// Package graph holds the product graph: the memoized, lazily growing set of
// "produce product P for subject S under variants V" questions and the edges
// between them.
//
// The package defines the vocabulary shared by every other layer:
//   - TypeID, subjects and Variants
//   - Selectors (Select, SelectVariant, SelectDependencies, SelectProjection, SelectLiteral)
//   - Node identity (NodeKey) and node State (Waiting, Return, Throw, Noop)
//   - ProductGraph, the sole owner of node states and adjacency
//
// ProductGraph does not step nodes. The engine package decides what a node
// needs and how it completes; this package enforces the structural rules:
// one node per identity, edges only while Waiting, exactly one completion,
// and no edge that would close a cycle.
//
// Thread-safety: ProductGraph is safe for concurrent use. The index is guarded
// by a read/write lock, each node's state by its own mutex, and edge insertion
// (with its cycle check) by a topology lock. There is no global lock around
// state transitions.
package graph
