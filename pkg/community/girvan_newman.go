package community

import (
	"context"
	"fmt"
	"math"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// GirvanNewmanDetector removes the edge of highest betweenness until the
// number of connected components grows, and returns those components.
type GirvanNewmanDetector struct {
	opts Options
}

func (d *GirvanNewmanDetector) Algorithm() Algorithm { return GirvanNewman }

func (d *GirvanNewmanDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		if limit := d.opts.GirvanNewmanMaxNodes; limit > 0 && g.NumNodes() > limit {
			return Partition{}, fmt.Errorf("%w: %d nodes exceeds girvan-newman limit %d", ErrGraphTooLarge, g.NumNodes(), limit)
		}

		work := g.Copy()
		initial := len(topo.ConnectedComponents(work))
		components := topo.ConnectedComponents(work)
		removed := 0

		for work.Edges().Len() > 0 {
			if err := ctx.Err(); err != nil {
				return Partition{}, err
			}
			u, v, ok := mostCentralEdge(work)
			if !ok {
				break
			}
			work.RemoveEdge(u, v)
			removed++

			components = topo.ConnectedComponents(work)
			if len(components) > initial {
				break
			}
		}

		d.opts.Logger.Debug().
			Int("removed_edges", removed).
			Int("components", len(components)).
			Msg("Girvan-Newman split found")
		return componentsPartition(g, components)
	})
}

// mostCentralEdge returns the edge with the highest betweenness. Scores are
// summed over both orientations and ties go to the lowest (u, v) pair.
func mostCentralEdge(g *simple.UndirectedGraph) (int64, int64, bool) {
	scores := make(map[[2]int64]float64)
	for key, score := range network.EdgeBetweenness(g) {
		u, v := key[0], key[1]
		if u > v {
			u, v = v, u
		}
		scores[[2]int64{u, v}] += score
	}

	var best [2]int64
	bestScore := 0.0
	found := false
	for key, score := range scores {
		if !g.HasEdgeBetween(key[0], key[1]) {
			continue
		}
		tol := 1e-9 * math.Max(1, math.Abs(score))
		switch {
		case !found, score > bestScore+tol:
		case math.Abs(score-bestScore) <= tol && lessPair(key, best):
		default:
			continue
		}
		best, bestScore, found = key, score, true
	}
	if found {
		return best[0], best[1], true
	}

	// betweenness covers every edge of a graph with edges; fall back to the lowest edge anyway
	edges := g.Edges()
	for edges.Next() {
		e := edges.Edge()
		u, v := e.From().ID(), e.To().ID()
		if u > v {
			u, v = v, u
		}
		if !found || lessPair([2]int64{u, v}, best) {
			best, found = [2]int64{u, v}, true
		}
	}
	return best[0], best[1], found
}

func lessPair(a, b [2]int64) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// componentsPartition sorts members by ID and orders components by their
// earliest inserted node
func componentsPartition(g *graph.Graph, components [][]gonum.Node) (Partition, error) {
	indexed := make([][]int64, len(components))
	for i, comp := range components {
		ids := make([]int64, len(comp))
		for j, n := range comp {
			ids[j] = n.ID()
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		indexed[i] = ids
	}
	sort.Slice(indexed, func(a, b int) bool { return indexed[a][0] < indexed[b][0] })

	sets := make([][]string, len(indexed))
	for i, ids := range indexed {
		sets[i] = make([]string, len(ids))
		for j, id := range ids {
			sets[i][j] = g.ID(id)
		}
		sort.Strings(sets[i])
	}
	return FromCommunities(sets)
}
