package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdge(t *testing.T) {
	g := New()

	assert.True(t, g.AddEdge("n1", "n2"))
	assert.True(t, g.AddEdge("n2", "n3"))
	assert.False(t, g.AddEdge("n2", "n1"), "reverse duplicate must collapse")
	assert.False(t, g.AddEdge("n1", "n2"), "duplicate must collapse")

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, []string{"n1", "n2", "n3"}, g.Nodes())
	assert.True(t, g.HasEdge("n1", "n2"))
	assert.True(t, g.HasEdge("n2", "n1"))
	assert.False(t, g.HasEdge("n1", "n3"))
	assert.False(t, g.HasEdge("n1", "missing"))
}

func TestSelfLoopRegistersNodeOnly(t *testing.T) {
	g := New()

	assert.False(t, g.AddEdge("a", "a"))
	assert.True(t, g.HasNode("a"))
	assert.Equal(t, 1, g.NumNodes())
	assert.Equal(t, 0, g.NumEdges())
	assert.Equal(t, 0, g.Degree("a"))
}

func TestQueries(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("c", "d")
	g.AddNode("e")

	assert.Equal(t, 2, g.Degree("a"))
	assert.Equal(t, 0, g.Degree("e"))
	assert.Equal(t, 0, g.Degree("unknown"))
	assert.Equal(t, []string{"b", "c"}, g.Neighbors("a"))
	assert.Nil(t, g.Neighbors("unknown"))
	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}, {"c", "d"}}, g.Edges())

	idx, ok := g.Index("c")
	require.True(t, ok)
	assert.Equal(t, int64(2), idx)
	assert.Equal(t, "c", g.ID(idx))
	assert.Panics(t, func() { g.ID(99) })

	assert.Equal(t, 5, g.Undirected().Nodes().Len())
}

func TestCopyIsIndependent(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	c := g.Copy()
	c.RemoveEdge(0, 1)

	assert.True(t, g.HasEdge("a", "b"))
	assert.False(t, c.HasEdgeBetween(0, 1))
	assert.True(t, c.HasEdgeBetween(1, 2))
}
