package community

import (
	"context"
	"math"
	"sort"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// GreedyModularityDetector is Clauset-Newman-Moore agglomeration: start from
// singletons and keep merging the connected pair with the largest positive
// modularity gain.
type GreedyModularityDetector struct {
	opts Options
}

func (d *GreedyModularityDetector) Algorithm() Algorithm { return GreedyModularity }

func (d *GreedyModularityDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		adj := g.Adjacency()
		n := len(adj)
		twoM := 2 * float64(g.NumEdges())
		gamma := d.opts.Resolution

		// e[i][j] is the fraction of edge ends joining communities i and j, a[i] the fraction attached to i
		e := make([]map[int]float64, n)
		a := make([]float64, n)
		members := make([][]int, n)
		for i, neighbors := range adj {
			e[i] = make(map[int]float64, len(neighbors))
			for _, j := range neighbors {
				e[i][j] = 1 / twoM
			}
			a[i] = float64(len(neighbors)) / twoM
			members[i] = []int{i}
		}

		merges := 0
		for {
			if err := ctx.Err(); err != nil {
				return Partition{}, err
			}

			bi, bj, best := -1, -1, 0.0
			for i := 0; i < n; i++ {
				for j, eij := range e[i] {
					if j <= i {
						continue
					}
					dq := 2 * (eij - gamma*a[i]*a[j])
					tol := 1e-12 * math.Max(1, math.Abs(dq))
					switch {
					case bi < 0 || dq > best+tol:
					case math.Abs(dq-best) <= tol && (i < bi || (i == bi && j < bj)):
					default:
						continue
					}
					bi, bj, best = i, j, dq
				}
			}
			if bi < 0 || best <= 1e-12 {
				break
			}

			// fold bj into bi
			for k, ejk := range e[bj] {
				if k == bi {
					continue
				}
				e[bi][k] += ejk
				e[k][bi] += ejk
				delete(e[k], bj)
			}
			delete(e[bi], bj)
			e[bj] = nil
			a[bi] += a[bj]
			a[bj] = 0
			members[bi] = append(members[bi], members[bj]...)
			members[bj] = nil
			merges++
		}

		groups := make([][]int, 0, n-merges)
		for _, m := range members {
			if len(m) == 0 {
				continue
			}
			sort.Ints(m)
			groups = append(groups, m)
		}
		sort.Slice(groups, func(x, y int) bool {
			if len(groups[x]) != len(groups[y]) {
				return len(groups[x]) > len(groups[y])
			}
			return groups[x][0] < groups[y][0]
		})

		sets := make([][]string, len(groups))
		for i, grp := range groups {
			sets[i] = make([]string, len(grp))
			for j, idx := range grp {
				sets[i][j] = g.ID(int64(idx))
			}
		}

		d.opts.Logger.Debug().Int("merges", merges).Msg("Greedy modularity finished")
		return FromCommunities(sets)
	})
}
