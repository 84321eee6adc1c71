package graph

import (
	"fmt"
	"sync"
)

// entry is the graph-owned record for one node.
//
// state is guarded by mu. deps, depSet and dependents are guarded by the
// graph's topology lock.
type entry struct {
	mu    sync.Mutex
	node  Node
	state State

	deps       []NodeKey
	depSet     map[NodeKey]struct{}
	dependents []NodeKey
}

// ProductGraph is the memoization and adjacency store.
//
// It is the single owner of node states and edges. Callers hold nodes by
// NodeKey (or by the immutable Node value) and read state through the graph,
// so invalidation and growth never leave a stale reference behind.
//
// Lock order: a node's mu may be held while taking topo, never the reverse.
type ProductGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*entry
	order []NodeKey

	topo sync.RWMutex
}

// New creates an empty graph.
func New() *ProductGraph {
	return &ProductGraph{
		nodes: make(map[NodeKey]*entry),
	}
}

// GetOrCreate returns the graph's node for n's identity, creating it in
// Waiting state on first sight. This is the single memoization point.
func (g *ProductGraph) GetOrCreate(n Node) Node {
	g.mu.RLock()
	e, ok := g.nodes[n.Key]
	g.mu.RUnlock()
	if ok {
		return e.node
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.nodes[n.Key]; ok {
		return e.node
	}
	g.nodes[n.Key] = &entry{node: n}
	g.order = append(g.order, n.Key)
	return n
}

// Lookup returns the node registered under key.
func (g *ProductGraph) Lookup(key NodeKey) (Node, bool) {
	e := g.entry(key)
	if e == nil {
		return Node{}, false
	}
	return e.node, true
}

// Len returns the number of nodes in the graph.
func (g *ProductGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Nodes returns every node in creation order.
func (g *ProductGraph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.nodes[k].node)
	}
	return out
}

func (g *ProductGraph) entry(key NodeKey) *entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[key]
}

// State returns the current state of the node with key. Unknown nodes are
// reported as Waiting.
func (g *ProductGraph) State(key NodeKey) State {
	e := g.entry(key)
	if e == nil {
		return Waiting()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Complete moves node to a terminal state. It must be called exactly once
// per node: a second call returns ErrAlreadyComplete, and a Waiting state
// returns ErrNotTerminal.
func (g *ProductGraph) Complete(key NodeKey, state State) error {
	if !state.IsTerminal() {
		return fmt.Errorf("complete %s: %w", key, ErrNotTerminal)
	}
	e := g.entry(key)
	if e == nil {
		return fmt.Errorf("complete %s: %w", key, ErrUnknownNode)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsTerminal() {
		return fmt.Errorf("complete %s (currently %s): %w", key, e.state.Status, ErrAlreadyComplete)
	}
	e.state = state
	return nil
}

// AddDependencies records edges from key to each of deps, in order.
//
// Dependencies are created if not yet known. Edges already present are kept
// in their original position. Adding to a terminal node returns ErrNotWaiting.
// A dependency whose edge would close a cycle is skipped and reported as a
// *CycleError once the remaining edges are recorded.
func (g *ProductGraph) AddDependencies(key NodeKey, deps []Node) error {
	e := g.entry(key)
	if e == nil {
		return fmt.Errorf("add dependencies to %s: %w", key, ErrUnknownNode)
	}

	entries := make([]*entry, len(deps))
	for i, d := range deps {
		g.GetOrCreate(d)
		entries[i] = g.entry(d.Key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsTerminal() {
		return fmt.Errorf("add dependencies to %s (currently %s): %w", key, e.state.Status, ErrNotWaiting)
	}

	g.topo.Lock()
	defer g.topo.Unlock()

	var cycle *CycleError
	for i, d := range deps {
		if _, ok := e.depSet[d.Key]; ok {
			continue
		}
		if path := g.pathLocked(d.Key, key); path != nil {
			if cycle == nil {
				cycle = &CycleError{From: key, To: d.Key, Path: append([]NodeKey{key}, path...)}
			}
			continue
		}
		if e.depSet == nil {
			e.depSet = make(map[NodeKey]struct{})
		}
		e.depSet[d.Key] = struct{}{}
		e.deps = append(e.deps, d.Key)
		entries[i].dependents = append(entries[i].dependents, key)
	}
	if cycle != nil {
		return cycle
	}
	return nil
}

// pathLocked returns a dependency path from -> ... -> to, or nil.
// from == to is a path of one. Callers hold topo.
func (g *ProductGraph) pathLocked(from, to NodeKey) []NodeKey {
	if from == to {
		return []NodeKey{from}
	}
	parent := map[NodeKey]NodeKey{}
	visited := map[NodeKey]bool{from: true}
	stack := []NodeKey{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := g.entry(cur)
		if e == nil {
			continue
		}
		for _, next := range e.deps {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if next == to {
				path := []NodeKey{to}
				for k := cur; ; k = parent[k] {
					path = append([]NodeKey{k}, path...)
					if k == from {
						return path
					}
				}
			}
			stack = append(stack, next)
		}
	}
	return nil
}

// DependenciesOf returns the dependencies of key in insertion order.
func (g *ProductGraph) DependenciesOf(key NodeKey) []Node {
	return g.adjacent(key, func(e *entry) []NodeKey { return e.deps })
}

// DependentsOf returns the nodes depending on key in insertion order.
func (g *ProductGraph) DependentsOf(key NodeKey) []Node {
	return g.adjacent(key, func(e *entry) []NodeKey { return e.dependents })
}

func (g *ProductGraph) adjacent(key NodeKey, pick func(*entry) []NodeKey) []Node {
	e := g.entry(key)
	if e == nil {
		return nil
	}
	g.topo.RLock()
	keys := append([]NodeKey(nil), pick(e)...)
	g.topo.RUnlock()

	out := make([]Node, 0, len(keys))
	for _, k := range keys {
		if n, ok := g.Lookup(k); ok {
			out = append(out, n)
		}
	}
	return out
}
