package graph

import "log/slog"

// Invalidate resets every node matching match, and every node transitively
// depending on one, back to Waiting with its outgoing edges cleared. The
// reverse edges are removed from the former dependencies as well. Nodes are
// reset in dependency order (a node before its dependents) and the number of
// reset nodes is returned.
//
// Invalidate must not run concurrently with an engine run on this graph.
func (g *ProductGraph) Invalidate(match func(Node) bool) int {
	var seeds []NodeKey
	for _, n := range g.Nodes() {
		if match(n) {
			seeds = append(seeds, n.Key)
		}
	}
	if len(seeds) == 0 {
		return 0
	}

	g.topo.Lock()
	dirty := make(map[NodeKey]bool)
	var order []NodeKey
	queue := append([]NodeKey(nil), seeds...)
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if dirty[k] {
			continue
		}
		dirty[k] = true
		order = append(order, k)
		if e := g.entry(k); e != nil {
			queue = append(queue, e.dependents...)
		}
	}

	for _, k := range order {
		e := g.entry(k)
		for _, d := range e.deps {
			if de := g.entry(d); de != nil {
				de.dependents = removeKey(de.dependents, k)
			}
		}
		e.deps = nil
		e.depSet = nil
	}
	g.topo.Unlock()

	for _, k := range order {
		e := g.entry(k)
		e.mu.Lock()
		e.state = Waiting()
		e.mu.Unlock()
	}

	slog.Debug("invalidated nodes", "seeds", len(seeds), "invalidated", len(order))
	return len(order)
}

// InvalidateSubjects invalidates every node whose subject is one of subjects.
func (g *ProductGraph) InvalidateSubjects(subjects []any) int {
	keys := make(map[[2]string]bool, len(subjects))
	for _, s := range subjects {
		keys[[2]string{string(TypeOf(s)), SubjectKey(s)}] = true
	}
	return g.Invalidate(func(n Node) bool {
		return keys[[2]string{string(n.Key.SubjectType), n.Key.Subject}]
	})
}

func removeKey(keys []NodeKey, k NodeKey) []NodeKey {
	out := keys[:0]
	for _, x := range keys {
		if x != k {
			out = append(out, x)
		}
	}
	return out
}
