package community

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/graph/spectral"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

var errEigen = errors.New("laplacian eigendecomposition did not converge")

// SpectralDetector embeds nodes with the eigenvectors of the k smallest
// eigenvalues of the graph Laplacian and clusters the embedding with
// k-means. Clusters that end up empty are dropped.
type SpectralDetector struct {
	opts Options
}

func (d *SpectralDetector) Algorithm() Algorithm { return Spectral }

func (d *SpectralDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		n := g.NumNodes()
		k := min(d.opts.SpectralK, n)

		points, err := laplacianEmbedding(g, k)
		if err != nil {
			return Partition{}, fmt.Errorf("spectral embedding: %w", err)
		}

		rng := rand.New(rand.NewSource(d.opts.Seed))
		labels, rounds, err := kMeans(ctx, points, k, d.opts.MaxIterations, rng)
		if err != nil {
			return Partition{}, err
		}

		d.opts.Logger.Debug().
			Int("k", k).
			Int("kmeans_rounds", rounds).
			Msg("Spectral clustering finished")
		return fromIndexLabels(g, labels)
	})
}

// laplacianEmbedding returns one k-dimensional point per node index
func laplacianEmbedding(g *graph.Graph, k int) ([][]float64, error) {
	n := g.NumNodes()
	lap := spectral.NewLaplacian(g.Undirected())

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ri := lap.Index[int64(i)]
		for j := i; j < n; j++ {
			sym.SetSym(i, j, lap.At(ri, lap.Index[int64(j)]))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errEigen
	}
	// eigenvalues come back in ascending order
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, k)
		for c := 0; c < k; c++ {
			points[i][c] = vecs.At(i, c)
		}
	}
	return points, nil
}

// kMeans clusters points with k-means++ seeding and Lloyd iterations. It
// returns the cluster of every point and the number of rounds run.
func kMeans(ctx context.Context, points [][]float64, k, maxRounds int, rng *rand.Rand) ([]int, int, error) {
	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	rounds := 0
	for rounds < maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, rounds, err
		}
		rounds++

		changed := false
		for i, p := range points {
			c := nearestCenter(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, len(centers))
		counts := make([]int, len(centers))
		for i, p := range points {
			c := labels[i]
			if sums[c] == nil {
				sums[c] = make([]float64, len(p))
			}
			for d, x := range p {
				sums[c][d] += x
			}
			counts[c]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			for d := range centers[c] {
				centers[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return labels, rounds, nil
}

func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clonePoint(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			dist[i] = sqDist(p, centers[nearestCenter(p, centers)])
			total += dist[i]
		}

		next := rng.Intn(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, clonePoint(points[next]))
	}
	return centers
}

// nearestCenter breaks ties towards the lowest center index
func nearestCenter(p []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clonePoint(p []float64) []float64 {
	return append([]float64(nil), p...)
}
