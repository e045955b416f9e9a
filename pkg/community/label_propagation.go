package community

import (
	"context"
	"sort"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// LabelPropagationDetector spreads labels semi-synchronously. Nodes are
// greedily coloured (highest degree first) and each sweep updates one colour
// class at a time, so adjacent nodes never move together and labels cannot
// flood across a bridge in a single sweep. A node adopts the most frequent
// label among its neighbours, keeps its own label when that is among the tied
// maxima, and otherwise takes the lowest tied label.
type LabelPropagationDetector struct {
	opts Options
}

func (d *LabelPropagationDetector) Algorithm() Algorithm { return LabelPropagation }

func (d *LabelPropagationDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		adj := g.Adjacency()
		labels := make([]int, len(adj))
		for i := range labels {
			labels[i] = i
		}
		classes := colorClasses(adj)

		converged := false
		sweeps := 0
		counts := make(map[int]int)
		for sweeps < d.opts.MaxIterations {
			if err := ctx.Err(); err != nil {
				return Partition{}, err
			}
			sweeps++

			changed := 0
			for _, class := range classes {
				for _, u := range class {
					clear(counts)
					for _, v := range adj[u] {
						counts[labels[v]]++
					}

					best, bestCount := -1, 0
					for label, c := range counts {
						if c > bestCount || (c == bestCount && label < best) {
							best, bestCount = label, c
						}
					}
					if counts[labels[u]] == bestCount {
						continue
					}
					labels[u] = best
					changed++
				}
			}
			if changed == 0 {
				converged = true
				break
			}
		}

		d.opts.Logger.Debug().
			Int("sweeps", sweeps).
			Int("colors", len(classes)).
			Bool("converged", converged).
			Msg("Label propagation finished")
		return fromIndexLabels(g, labels)
	})
}

// colorClasses greedily colours the nodes that have neighbours, visiting them
// by descending degree (ties by index), and returns the nodes of each colour
// in index order. Nodes of one class are pairwise non-adjacent.
func colorClasses(adj [][]int) [][]int {
	order := make([]int, 0, len(adj))
	for u, neighbors := range adj {
		if len(neighbors) > 0 {
			order = append(order, u)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(adj[order[i]]) > len(adj[order[j]])
	})

	color := make([]int, len(adj))
	for i := range color {
		color[i] = -1
	}
	numColors := 0
	used := make(map[int]bool)
	for _, u := range order {
		clear(used)
		for _, v := range adj[u] {
			if color[v] >= 0 {
				used[color[v]] = true
			}
		}
		c := 0
		for used[c] {
			c++
		}
		color[u] = c
		if c >= numColors {
			numColors = c + 1
		}
	}

	classes := make([][]int, numColors)
	for u, c := range color {
		if c >= 0 {
			classes[c] = append(classes[c], u)
		}
	}
	return classes
}
