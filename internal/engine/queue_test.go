package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prodgraph/internal/graph"
)

func queueNode(name string) graph.Node {
	return graph.NewNode(graph.KindSelect, name, nil, graph.Select{Product: "X"}, "")
}

func TestWorkQueue_FIFO(t *testing.T) {
	q := newWorkQueue()
	q.Push(queueNode("a"), queueNode("b"), queueNode("c"))

	for _, want := range []string{"a", "b", "c"} {
		n, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, n.Key.Subject)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestWorkQueue_DeduplicatesPending(t *testing.T) {
	q := newWorkQueue()
	q.Push(queueNode("a"), queueNode("a"))
	q.Push(queueNode("a"))
	assert.Equal(t, 1, q.Len())

	_, _ = q.Pop()
	q.Push(queueNode("a"))
	assert.Equal(t, 1, q.Len(), "a popped node may be queued again")
}

func TestWorkQueue_Drain(t *testing.T) {
	q := newWorkQueue()
	q.Push(queueNode("a"), queueNode("b"))

	got := q.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, 0, q.Len())

	q.Push(queueNode("a"))
	assert.Equal(t, 1, q.Len())
}

func TestWorkQueue_ThreadSafe(t *testing.T) {
	q := newWorkQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(queueNode("a"), queueNode("b"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, q.Len())
}
