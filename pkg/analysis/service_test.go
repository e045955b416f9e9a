package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/traffic-community-service/pkg/community"
	"github.com/gilchrisn/traffic-community-service/pkg/parser"
	"github.com/gilchrisn/traffic-community-service/pkg/stats"
)

// twoCliquesFile writes two 4-cliques joined by a3-b0 in the sensor layout
func twoCliquesFile(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("# graph sensor1 sensor2 timestamp\n")
	for _, prefix := range []string{"a", "b"} {
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				fmt.Fprintf(&sb, "g1 %s%d %s%d 1700000000\n", prefix, i, prefix, j)
			}
		}
	}
	sb.WriteString("g1 a3 b0 1700000001\n")
	sb.WriteString("truncated\n")
	return writeFile(t, "edges.txt", sb.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestService() *Service {
	return New(Config{Logger: zerolog.Nop()})
}

func TestRun(t *testing.T) {
	svc := newTestService()
	gtPath := writeFile(t, "gt.txt", "a0,a1,a2,a3\nb0,b1,b2,b3\n")

	report, err := svc.Run(context.Background(), Request{
		EdgesPath:       twoCliquesFile(t),
		Algorithm:       community.Louvain,
		GroundTruthPath: gtPath,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RequestID)
	assert.Equal(t, 8, report.Nodes)
	assert.Equal(t, 13, report.Edges)
	assert.Equal(t, parser.EdgeReport{Lines: 15, Comments: 1, Accepted: 13, Skipped: 1}, report.Ingestion)

	assert.Equal(t, 2, report.Partition.Len())
	assert.InDelta(t, 2*(12.0/26.0-0.25), report.Modularity, 1e-9)

	require.NotNil(t, report.Statistics)
	assert.Equal(t, map[int]int{4: 2}, report.Statistics.SizeHistogram)
	require.NotNil(t, report.GroundTruth)
	assert.Equal(t, 2, report.GroundTruth.NumGroups)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id"`)
	assert.Contains(t, string(data), `"communities"`)

	rec := svc.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.DetectionsTotal.WithLabelValues("louvain", "success")))
	assert.Equal(t, 13.0, testutil.ToFloat64(rec.EdgeLinesTotal.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.GroundTruthGroupsTotal))
}

func TestRunRequestIDsDiffer(t *testing.T) {
	svc := newTestService()
	req := Request{EdgesPath: twoCliquesFile(t), Algorithm: community.LabelPropagation}

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, first.Partition.Communities(), second.Partition.Communities())
}

func TestRunEmptyEdgeFile(t *testing.T) {
	report, err := newTestService().Run(context.Background(), Request{
		EdgesPath: writeFile(t, "empty.txt", "# nothing here\n"),
		Algorithm: community.GreedyModularity,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Nodes)
	assert.Equal(t, 0, report.Partition.Len())
	assert.Nil(t, report.Statistics)
}

func TestRunErrors(t *testing.T) {
	edges := twoCliquesFile(t)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		req   Request
		class ErrorClass
	}{
		{"MissingInput", context.Background(), Request{Algorithm: community.Louvain}, LogicError},
		{"UnknownAlgorithm", context.Background(), Request{EdgesPath: edges, Algorithm: "infomap"}, LogicError},
		{"MissingFile", context.Background(), Request{EdgesPath: filepath.Join(t.TempDir(), "nope.txt"), Algorithm: community.Louvain}, ResourceError},
		{"CorruptGzip", context.Background(), Request{EdgesPath: writeFile(t, "edges.gz", "\x1f\x8b\x00\x00"), Algorithm: community.Louvain}, ResourceError},
		{"Cancelled", cancelled, Request{EdgesPath: edges, Algorithm: community.Spectral}, Canceled},
		{"BadGroundTruth", context.Background(), Request{
			EdgesPath:       edges,
			Algorithm:       community.Louvain,
			GroundTruthPath: writeFile(t, "gt.txt", "a,,b\n"),
		}, FormatError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService().Run(tt.ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.class, Classify(err))
		})
	}
}

func TestDetectCommunitiesSeedOverride(t *testing.T) {
	svc := newTestService()
	g, err := svc.BuildGraph(twoCliquesFile(t))
	require.NoError(t, err)

	seed := int64(99)
	first, err := svc.DetectCommunities(context.Background(), g, community.KernighanLin, &seed)
	require.NoError(t, err)
	second, err := svc.DetectCommunities(context.Background(), g, community.KernighanLin, &seed)
	require.NoError(t, err)
	assert.Equal(t, first.Communities(), second.Communities())

	opts := community.DefaultOptions()
	opts.GirvanNewmanMaxNodes = 2
	limited := New(Config{Detector: &opts, Logger: zerolog.Nop()})
	_, err = limited.DetectCommunities(context.Background(), g, community.GirvanNewman, nil)
	assert.ErrorIs(t, err, community.ErrGraphTooLarge)
	assert.Equal(t, 1.0, testutil.ToFloat64(limited.Metrics().DetectionsTotal.WithLabelValues("girvan-newman", "error")))
}

func TestComputeStatistics(t *testing.T) {
	svc := newTestService()
	gt, err := svc.BuildGroundTruth(writeFile(t, "gt.txt", "1,2\n3\n4,5,6\n"))
	require.NoError(t, err)

	s, err := svc.ComputeStatistics(gt.GroupToNodes)
	require.NoError(t, err)
	assert.Equal(t, 3, s.NumGroups)
	assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 3}, s.GroupSizes)

	_, err = svc.ComputeStatistics(nil)
	assert.ErrorIs(t, err, stats.ErrEmptyGrouping)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{nil, ""},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), Canceled},
		{fmt.Errorf("open: %w", parser.ErrResourceUnavailable), ResourceError},
		{fmt.Errorf("line 3: %w: invalid UTF-8", parser.ErrDecode), ResourceError},
		{parser.ErrEmptyGroundTruth, FormatError},
		{community.ErrUnknownAlgorithm, LogicError},
		{community.ErrInvalidPartition, Internal},
		{errors.New("boom"), Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "error %v", tt.err)
	}
}
