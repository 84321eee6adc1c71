package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidate_TransitiveDependents(t *testing.T) {
	g := New()
	root := g.GetOrCreate(selectNode("root", "X"))
	mid := selectNode("mid", "X")
	leaf := selectNode("leaf", "X")
	other := selectNode("other", "X")

	require.NoError(t, g.AddDependencies(root.Key, []Node{mid, other}))
	require.NoError(t, g.AddDependencies(mid.Key, []Node{leaf}))
	require.NoError(t, g.Complete(leaf.Key, Return(1)))
	require.NoError(t, g.Complete(mid.Key, Return(2)))
	require.NoError(t, g.Complete(other.Key, Return(3)))
	require.NoError(t, g.Complete(root.Key, Return(4)))

	n := g.InvalidateSubjects([]any{"leaf"})

	assert.Equal(t, 3, n)
	assert.Equal(t, StatusWaiting, g.State(leaf.Key).Status)
	assert.Equal(t, StatusWaiting, g.State(mid.Key).Status)
	assert.Equal(t, StatusWaiting, g.State(root.Key).Status)
	assert.Equal(t, Return(3), g.State(other.Key), "unrelated nodes keep their state")

	assert.Empty(t, g.DependenciesOf(root.Key))
	assert.Empty(t, g.DependenciesOf(mid.Key))
	assert.Empty(t, g.DependentsOf(other.Key), "reverse edges are cleared too")
	assert.Equal(t, 4, g.Len(), "invalidation keeps nodes")
}

func TestInvalidate_NoMatch(t *testing.T) {
	g := New()
	a := g.GetOrCreate(selectNode("a", "X"))
	require.NoError(t, g.Complete(a.Key, Return(1)))

	assert.Equal(t, 0, g.InvalidateSubjects([]any{"missing"}))
	assert.Equal(t, Return(1), g.State(a.Key))
}

func TestInvalidate_AllowsNewEdges(t *testing.T) {
	g := New()
	a := g.GetOrCreate(selectNode("a", "X"))
	require.NoError(t, g.Complete(a.Key, Return(1)))

	g.Invalidate(func(n Node) bool { return n.Key == a.Key })

	require.NoError(t, g.AddDependencies(a.Key, []Node{selectNode("b", "X")}))
	require.NoError(t, g.Complete(a.Key, Return(2)))
}
