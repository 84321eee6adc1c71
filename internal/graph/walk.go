package graph

import "iter"

// Walk yields every node reachable from roots over recorded dependency
// edges, depth-first pre-order, each node once, dependencies in insertion
// order.
//
// The sequence is lazy and restartable: each range over it re-reads the
// graph, so a walk after further execution or invalidation reflects the
// current edges and states.
func (g *ProductGraph) Walk(roots []NodeKey) iter.Seq2[Node, State] {
	return func(yield func(Node, State) bool) {
		visited := make(map[NodeKey]bool)
		stack := make([]NodeKey, 0, len(roots))
		for i := len(roots) - 1; i >= 0; i-- {
			stack = append(stack, roots[i])
		}

		for len(stack) > 0 {
			key := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[key] {
				continue
			}
			n, ok := g.Lookup(key)
			if !ok {
				continue
			}
			visited[key] = true
			if !yield(n, g.State(key)) {
				return
			}

			deps := g.DependenciesOf(key)
			for i := len(deps) - 1; i >= 0; i-- {
				if !visited[deps[i].Key] {
					stack = append(stack, deps[i].Key)
				}
			}
		}
	}
}
