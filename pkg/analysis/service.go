// Package analysis ties ingestion, detection and statistics together. It is
// the surface an HTTP layer or the command line calls into.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/traffic-community-service/pkg/community"
	"github.com/gilchrisn/traffic-community-service/pkg/graph"
	"github.com/gilchrisn/traffic-community-service/pkg/metrics"
	"github.com/gilchrisn/traffic-community-service/pkg/parser"
	"github.com/gilchrisn/traffic-community-service/pkg/stats"
)

// Config configures a Service. The zero value uses default detector options,
// the "#" comment prefix, the graph-prefixed edge layout and a no-op logger.
type Config struct {
	Parser   parser.Options
	Detector *community.Options
	Logger   zerolog.Logger
	// Metrics defaults to a fresh recorder
	Metrics *metrics.Recorder
}

// Service runs analysis requests. It keeps no per-request state, so one
// Service may serve concurrent requests.
type Service struct {
	parserOpts   parser.Options
	detectorOpts community.Options
	logger       zerolog.Logger
	metrics      *metrics.Recorder
}

// Request describes one full analysis run
type Request struct {
	EdgesPath       string              `json:"edges_path"`
	Algorithm       community.Algorithm `json:"algorithm"`
	Seed            *int64              `json:"seed,omitempty"`
	GroundTruthPath string              `json:"ground_truth_path,omitempty"`
}

// Report is the outcome of Run
type Report struct {
	RequestID   string              `json:"request_id"`
	Algorithm   community.Algorithm `json:"algorithm"`
	Nodes       int                 `json:"nodes"`
	Edges       int                 `json:"edges"`
	Ingestion   parser.EdgeReport   `json:"ingestion"`
	Partition   community.Partition `json:"partition"`
	Modularity  float64             `json:"modularity"`
	Statistics  *stats.Statistics   `json:"statistics,omitempty"`
	GroundTruth *stats.Statistics   `json:"ground_truth,omitempty"`
	DurationMs  float64             `json:"duration_ms"`
}

// New creates a Service from cfg
func New(cfg Config) *Service {
	opts := community.DefaultOptions()
	if cfg.Detector != nil {
		opts = *cfg.Detector
	}
	opts.Logger = cfg.Logger

	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NewRecorder()
	}

	parserOpts := cfg.Parser
	parserOpts.Logger = cfg.Logger

	return &Service{
		parserOpts:   parserOpts,
		detectorOpts: opts,
		logger:       cfg.Logger,
		metrics:      rec,
	}
}

// Metrics returns the recorder the service reports into
func (s *Service) Metrics() *metrics.Recorder { return s.metrics }

// BuildGraph loads the contact graph stored at path
func (s *Service) BuildGraph(path string) (*graph.Graph, error) {
	g, _, err := s.buildGraph(path, s.logger)
	return g, err
}

func (s *Service) buildGraph(path string, logger zerolog.Logger) (*graph.Graph, parser.EdgeReport, error) {
	opts := s.parserOpts
	opts.Logger = logger

	g, report, err := parser.LoadEdges(path, opts)
	s.metrics.RecordEdgeLines(report.Accepted, report.Skipped, report.Comments)
	if err != nil {
		return nil, report, err
	}
	return g, report, nil
}

// BuildGroundTruth loads the ground-truth grouping stored at path
func (s *Service) BuildGroundTruth(path string) (*parser.GroundTruth, error) {
	return s.buildGroundTruth(path, s.logger)
}

func (s *Service) buildGroundTruth(path string, logger zerolog.Logger) (*parser.GroundTruth, error) {
	opts := s.parserOpts
	opts.Logger = logger

	gt, err := parser.LoadGroundTruth(path, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGroundTruth(gt.NumGroups())
	return gt, nil
}

// DetectCommunities partitions g with alg. A non-nil seed overrides the configured one.
func (s *Service) DetectCommunities(ctx context.Context, g *graph.Graph, alg community.Algorithm, seed *int64) (community.Partition, error) {
	return s.detect(ctx, g, alg, seed, s.logger)
}

func (s *Service) detect(ctx context.Context, g *graph.Graph, alg community.Algorithm, seed *int64, logger zerolog.Logger) (community.Partition, error) {
	opts := s.detectorOpts
	opts.Logger = logger
	if seed != nil {
		opts.Seed = *seed
	}

	start := time.Now()
	p, err := community.Detect(ctx, g, alg, opts)
	s.metrics.RecordDetection(string(alg), time.Since(start), p.Len(), err)
	if err != nil {
		return community.Partition{}, fmt.Errorf("detect communities with %s: %w", alg, err)
	}

	logger.Info().
		Str("algorithm", string(alg)).
		Int64("seed", opts.Seed).
		Int("communities", p.Len()).
		Dur("runtime", time.Since(start)).
		Msg("Communities detected")
	return p, nil
}

// ComputeStatistics describes a label -> members grouping
func (s *Service) ComputeStatistics(groups map[int][]string) (*stats.Statistics, error) {
	return stats.Compute(groups)
}

// Run loads the edge file, detects communities, and describes the partition
// and, when requested, the ground truth.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if req.EdgesPath == "" {
		return nil, ErrMissingInput
	}
	if !req.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %q", community.ErrUnknownAlgorithm, req.Algorithm)
	}

	start := time.Now()
	report := &Report{RequestID: uuid.NewString(), Algorithm: req.Algorithm}
	logger := s.logger.With().Str("request_id", report.RequestID).Logger()

	logger.Info().
		Str("edges", req.EdgesPath).
		Str("algorithm", string(req.Algorithm)).
		Msg("Analysis started")

	g, ingestion, err := s.buildGraph(req.EdgesPath, logger)
	if err != nil {
		return nil, s.fail(logger, "load edges", err)
	}
	report.Nodes, report.Edges, report.Ingestion = g.NumNodes(), g.NumEdges(), ingestion

	p, err := s.detect(ctx, g, req.Algorithm, req.Seed, logger)
	if err != nil {
		return nil, s.fail(logger, "detect", err)
	}
	report.Partition = p
	report.Modularity = community.Modularity(g, p, s.detectorOpts.Resolution)

	if p.Len() > 0 {
		if report.Statistics, err = stats.Compute(p.Groups()); err != nil {
			return nil, s.fail(logger, "partition statistics", err)
		}
	}

	if req.GroundTruthPath != "" {
		gt, err := s.buildGroundTruth(req.GroundTruthPath, logger)
		if err != nil {
			return nil, s.fail(logger, "load ground truth", err)
		}
		if report.GroundTruth, err = stats.Compute(gt.GroupToNodes); err != nil {
			return nil, s.fail(logger, "ground truth statistics", err)
		}
	}

	report.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	logger.Info().
		Int("nodes", report.Nodes).
		Int("edges", report.Edges).
		Int("communities", p.Len()).
		Float64("modularity", report.Modularity).
		Float64("duration_ms", report.DurationMs).
		Msg("Analysis completed")

	return report, nil
}

func (s *Service) fail(logger zerolog.Logger, stage string, err error) error {
	logger.Error().
		Err(err).
		Str("stage", stage).
		Str("class", string(Classify(err))).
		Msg("Analysis failed")
	return err
}
