// Package graph holds the undirected contact graph built from edge records.
//
// Nodes are opaque string identifiers. Each node also gets a dense integer
// index in first-seen order, which is the gonum node ID of the backing
// simple.UndirectedGraph, so library algorithms and array-based algorithms
// share one numbering.
package graph

import (
	"fmt"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is an unweighted undirected graph without multi-edges or self-loops.
// It is built once by ingestion and treated as read-only afterwards.
type Graph struct {
	g        *simple.UndirectedGraph
	ids      []string         // index -> node ID, insertion order
	index    map[string]int64 // node ID -> index
	adj      [][]int          // index -> neighbor indices, edge insertion order
	numEdges int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		g:     simple.NewUndirectedGraph(),
		index: make(map[string]int64),
	}
}

// AddNode adds a node if it is not present and returns its index
func (g *Graph) AddNode(id string) int64 {
	if idx, ok := g.index[id]; ok {
		return idx
	}
	idx := int64(len(g.ids))
	g.g.AddNode(simple.Node(idx))
	g.ids = append(g.ids, id)
	g.index[id] = idx
	g.adj = append(g.adj, nil)
	return idx
}

// AddEdge adds the undirected edge u-v, creating missing endpoints.
// It reports whether a new edge was stored; existing edges and self-loops
// are no-ops (a self-loop still registers its node).
func (g *Graph) AddEdge(u, v string) bool {
	ui := g.AddNode(u)
	vi := g.AddNode(v)
	if ui == vi {
		return false
	}
	if g.g.HasEdgeBetween(ui, vi) {
		return false
	}

	g.g.SetEdge(simple.Edge{F: simple.Node(ui), T: simple.Node(vi)})
	g.adj[ui] = append(g.adj[ui], int(vi))
	g.adj[vi] = append(g.adj[vi], int(ui))
	g.numEdges++
	return true
}

// NumNodes returns the number of nodes
func (g *Graph) NumNodes() int { return len(g.ids) }

// NumEdges returns the number of distinct undirected edges
func (g *Graph) NumEdges() int { return g.numEdges }

// Nodes returns node IDs in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []string { return g.ids }

// HasNode reports whether id is a node of the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// HasEdge reports whether the undirected edge u-v exists
func (g *Graph) HasEdge(u, v string) bool {
	ui, ok := g.index[u]
	if !ok {
		return false
	}
	vi, ok := g.index[v]
	if !ok {
		return false
	}
	return g.g.HasEdgeBetween(ui, vi)
}

// Degree returns the number of neighbors of id, or 0 for unknown nodes
func (g *Graph) Degree(id string) int {
	idx, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.adj[idx])
}

// Neighbors returns the neighbors of id in edge insertion order
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[idx]))
	for i, n := range g.adj[idx] {
		out[i] = g.ids[n]
	}
	return out
}

// Edges returns every edge once as (lower index, higher index) endpoint pairs,
// ordered by the lower endpoint's index and then by adjacency order.
func (g *Graph) Edges() [][2]string {
	out := make([][2]string, 0, g.numEdges)
	for u, neighbors := range g.adj {
		for _, v := range neighbors {
			if v > u {
				out = append(out, [2]string{g.ids[u], g.ids[v]})
			}
		}
	}
	return out
}

// Index returns the dense index of id
func (g *Graph) Index(id string) (int64, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// ID returns the node ID at index idx
func (g *Graph) ID(idx int64) string {
	if idx < 0 || idx >= int64(len(g.ids)) {
		panic(fmt.Sprintf("graph: node index %d out of range [0,%d)", idx, len(g.ids)))
	}
	return g.ids[idx]
}

// Adjacency returns neighbor index lists indexed by node index. The result
// is shared with the graph and must not be modified.
func (g *Graph) Adjacency() [][]int { return g.adj }

// Undirected exposes the backing gonum graph for library algorithms.
// Callers must not mutate it; use Copy for a mutable working graph.
func (g *Graph) Undirected() gonum.Undirected { return g.g }

// Copy returns a mutable gonum copy with the same node IDs
func (g *Graph) Copy() *simple.UndirectedGraph {
	dst := simple.NewUndirectedGraph()
	gonum.Copy(dst, g.g)
	return dst
}
