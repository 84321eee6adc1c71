package engine

import (
	"sync"

	"github.com/roach88/prodgraph/internal/graph"
)

// workQueue is the engine's work-list: a thread-safe FIFO of nodes to step.
//
// A node is held at most once at a time; pushing a node that is already
// queued is a no-op. The queue is unbounded so that a step discovering many
// dependencies never blocks.
type workQueue struct {
	mu      sync.Mutex
	nodes   []graph.Node
	pending map[graph.NodeKey]bool
}

func newWorkQueue() *workQueue {
	return &workQueue{
		nodes:   make([]graph.Node, 0, 64),
		pending: make(map[graph.NodeKey]bool),
	}
}

// Push appends nodes not already queued.
func (q *workQueue) Push(nodes ...graph.Node) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range nodes {
		if q.pending[n.Key] {
			continue
		}
		q.pending[n.Key] = true
		q.nodes = append(q.nodes, n)
	}
}

// Pop removes and returns the front node.
// Returns (graph.Node{}, false) if the queue is empty.
func (q *workQueue) Pop() (graph.Node, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.nodes) == 0 {
		return graph.Node{}, false
	}
	n := q.nodes[0]
	// Clear the slot so the backing array does not retain the subject.
	q.nodes[0] = graph.Node{}
	if len(q.nodes) == 1 {
		q.nodes = q.nodes[:0]
	} else {
		q.nodes = q.nodes[1:]
	}
	delete(q.pending, n.Key)
	return n, true
}

// Drain removes and returns every queued node in FIFO order.
func (q *workQueue) Drain() []graph.Node {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.nodes
	q.nodes = make([]graph.Node, 0, len(out))
	clear(q.pending)
	return out
}

// Len returns the current queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.nodes)
}
