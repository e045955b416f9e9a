package community

import (
	"context"
	"fmt"
	"time"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// Detector partitions a contact graph into communities
type Detector interface {
	Algorithm() Algorithm
	Detect(ctx context.Context, g *graph.Graph) (Partition, error)
}

// New returns the detector for alg configured with opts
func New(alg Algorithm, opts Options) (Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Logger = opts.Logger.With().Str("algorithm", string(alg)).Logger()

	switch alg {
	case GirvanNewman:
		return &GirvanNewmanDetector{opts: opts}, nil
	case Louvain:
		return &LouvainDetector{opts: opts}, nil
	case LabelPropagation:
		return &LabelPropagationDetector{opts: opts}, nil
	case Spectral:
		return &SpectralDetector{opts: opts}, nil
	case GreedyModularity:
		return &GreedyModularityDetector{opts: opts}, nil
	case KernighanLin:
		return &KernighanLinDetector{opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// Detect is a shortcut for New followed by Detect
func Detect(ctx context.Context, g *graph.Graph, alg Algorithm, opts Options) (Partition, error) {
	d, err := New(alg, opts)
	if err != nil {
		return Partition{}, err
	}
	return d.Detect(ctx, g)
}

// run handles the cases every strategy shares and validates what fn returns.
// An empty graph yields an empty partition and a graph without edges yields
// one singleton per node, whatever the strategy.
func run(ctx context.Context, g *graph.Graph, opts Options, fn func() (Partition, error)) (Partition, error) {
	if g.NumNodes() == 0 {
		return Partition{}, nil
	}
	if g.NumEdges() == 0 {
		return singletons(g), nil
	}
	if err := ctx.Err(); err != nil {
		return Partition{}, err
	}

	start := time.Now()
	p, err := fn()
	if err != nil {
		return Partition{}, err
	}
	if err := p.Validate(g); err != nil {
		return Partition{}, fmt.Errorf("detector produced %w", err)
	}

	opts.Logger.Debug().
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Int("communities", p.Len()).
		Dur("runtime", time.Since(start)).
		Msg("Detection completed")
	return p, nil
}
