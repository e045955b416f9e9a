package community

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// KernighanLinDetector bisects the graph. It starts from a seeded balanced
// split and runs swap passes until a pass no longer reduces the cut.
type KernighanLinDetector struct {
	opts Options
}

func (d *KernighanLinDetector) Algorithm() Algorithm { return KernighanLin }

func (d *KernighanLinDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		adj := g.Adjacency()
		n := len(adj)
		und := g.Undirected()

		inA := make([]bool, n)
		rng := rand.New(rand.NewSource(d.opts.Seed))
		for i, node := range rng.Perm(n) {
			inA[node] = i < n/2
		}

		passes := 0
		for passes < d.opts.KernighanLinPasses {
			if err := ctx.Err(); err != nil {
				return Partition{}, err
			}
			passes++

			swaps, gain := klPass(adj, inA, func(u, v int) bool {
				return und.HasEdgeBetween(int64(u), int64(v))
			})
			if gain <= 0 {
				break
			}
			for _, s := range swaps {
				inA[s[0]], inA[s[1]] = false, true
			}
		}

		labels := make([]int, n)
		for i, a := range inA {
			if !a {
				labels[i] = 1
			}
		}

		d.opts.Logger.Debug().
			Int("passes", passes).
			Int("cut", cutSize(adj, inA)).
			Msg("Kernighan-Lin finished")
		return fromIndexLabels(g, labels)
	})
}

// klPass runs one pass of tentative swaps and returns the prefix of swaps
// (a from A, b from B) with the largest cumulative cut reduction.
func klPass(adj [][]int, inA []bool, connected func(u, v int) bool) ([][2]int, int) {
	n := len(adj)
	side := append([]bool(nil), inA...)
	locked := make([]bool, n)

	// external minus internal edge count
	gainOf := make([]int, n)
	for u, neighbors := range adj {
		for _, v := range neighbors {
			if side[u] != side[v] {
				gainOf[u]++
			} else {
				gainOf[u]--
			}
		}
	}

	var sideA, sideB []int
	for u := 0; u < n; u++ {
		if side[u] {
			sideA = append(sideA, u)
		} else {
			sideB = append(sideB, u)
		}
	}
	steps := min(len(sideA), len(sideB))

	swaps := make([][2]int, 0, steps)
	total, bestTotal, bestLen := 0, 0, 0
	for step := 0; step < steps; step++ {
		byGain := func(nodes []int) []int {
			out := make([]int, 0, len(nodes))
			for _, u := range nodes {
				if !locked[u] {
					out = append(out, u)
				}
			}
			sort.Slice(out, func(x, y int) bool {
				if gainOf[out[x]] != gainOf[out[y]] {
					return gainOf[out[x]] > gainOf[out[y]]
				}
				return out[x] < out[y]
			})
			return out
		}
		candA, candB := byGain(sideA), byGain(sideB)

		ba, bb, best := -1, -1, math.MinInt
		for _, a := range candA {
			if ba >= 0 && gainOf[a]+gainOf[candB[0]] < best {
				break
			}
			for _, b := range candB {
				bound := gainOf[a] + gainOf[b]
				if bound < best {
					break
				}
				swapGain := bound
				if connected(a, b) {
					swapGain -= 2
				}
				if swapGain > best || (swapGain == best && (a < ba || (a == ba && b < bb))) {
					ba, bb, best = a, b, swapGain
				}
			}
		}

		locked[ba], locked[bb] = true, true
		for _, x := range adj[ba] {
			if locked[x] {
				continue
			}
			if side[x] == side[ba] {
				gainOf[x] += 2
			} else {
				gainOf[x] -= 2
			}
		}
		for _, x := range adj[bb] {
			if locked[x] {
				continue
			}
			if side[x] == side[bb] {
				gainOf[x] += 2
			} else {
				gainOf[x] -= 2
			}
		}
		side[ba], side[bb] = false, true

		swaps = append(swaps, [2]int{ba, bb})
		total += best
		if total > bestTotal {
			bestTotal, bestLen = total, len(swaps)
		}
	}
	return swaps[:bestLen], bestTotal
}

func cutSize(adj [][]int, inA []bool) int {
	cut := 0
	for u, neighbors := range adj {
		for _, v := range neighbors {
			if v > u && inA[u] != inA[v] {
				cut++
			}
		}
	}
	return cut
}
