package community

import (
	"context"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
	"github.com/gilchrisn/traffic-community-service/pkg/louvain"
)

// LouvainDetector runs multi-level modularity optimization
type LouvainDetector struct {
	opts Options
}

func (d *LouvainDetector) Algorithm() Algorithm { return Louvain }

func (d *LouvainDetector) Detect(ctx context.Context, g *graph.Graph) (Partition, error) {
	return run(ctx, g, d.opts, func() (Partition, error) {
		config := louvain.NewConfig()
		config.Set("algorithm.random_seed", d.opts.Seed)
		config.Set("algorithm.resolution", d.opts.Resolution)
		config.Set("algorithm.max_levels", d.opts.LouvainMaxLevels)
		config.Set("algorithm.max_iterations", d.opts.LouvainMaxIterations)
		config.SetLogger(d.opts.Logger)

		result, err := louvain.Run(ctx, louvain.FromContactGraph(g), config)
		if err != nil {
			return Partition{}, err
		}
		return fromIndexLabels(g, result.FinalCommunities)
	})
}
