package parser

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEdges = "g1 n1 n2 80\ng1 n2 n3 443\n# comment\nbad\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func snappyBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	sw := snappy.NewBufferedWriter(&buf)
	_, err := sw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, sw.Close())
	return buf.Bytes()
}

func TestParseEdgesScenario(t *testing.T) {
	g, report, err := ParseEdges(strings.NewReader(sampleEdges), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"n1", "n2", "n3"}, g.Nodes())
	assert.Equal(t, [][2]string{{"n1", "n2"}, {"n2", "n3"}}, g.Edges())
	assert.Equal(t, EdgeReport{Lines: 4, Comments: 1, Accepted: 2, Skipped: 1}, report)
}

func TestParseEdgesEmptyInputs(t *testing.T) {
	for name, input := range map[string]string{
		"empty":        "",
		"comment only": "# header\n# another\n",
		"blank lines":  "\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			g, _, err := ParseEdges(strings.NewReader(input), Options{})
			require.NoError(t, err)
			assert.Equal(t, 0, g.NumNodes())
			assert.Equal(t, 0, g.NumEdges())
		})
	}
}

func TestParseEdgesDuplicatesCollapse(t *testing.T) {
	input := "g a b\ng b a\ng a b 22\ng c c\n"
	g, report, err := ParseEdges(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 1, g.NumEdges())
	assert.Equal(t, 1, report.SelfLoops)
}

func TestParseEdgesPlainLayout(t *testing.T) {
	input := "a b\nb c 80\nsolo\n"
	g, report, err := ParseEdges(strings.NewReader(input), Options{Layout: LayoutPlain})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes())
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, 1, report.Skipped)
}

func TestParseEdgesCustomComment(t *testing.T) {
	input := "% header\ng a b\n"
	g, _, err := ParseEdges(strings.NewReader(input), Options{CommentPrefix: "%"})
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumEdges())
}

func TestParseEdgeRecord(t *testing.T) {
	rec, ok := ParseEdgeRecord("g7\tsrc  dst 443 tcp", LayoutGraphPrefixed)
	require.True(t, ok)
	assert.Equal(t, EdgeRecord{GraphID: "g7", Source: "src", Target: "dst", Aux: []string{"443", "tcp"}}, rec)

	_, ok = ParseEdgeRecord("g7 src", LayoutGraphPrefixed)
	assert.False(t, ok)

	rec, ok = ParseEdgeRecord("src dst", LayoutPlain)
	require.True(t, ok)
	assert.Equal(t, "", rec.GraphID)
	assert.Nil(t, rec.Aux)
}

func TestParseEdgesInvalidUTF8(t *testing.T) {
	_, _, err := ParseEdges(bytes.NewReader([]byte("g a b\ng \xff\xfe c\n")), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestLoadEdgesCompression(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{"plain", []byte(sampleEdges), CompressionNone},
		{"gzip", gzipBytes(t, sampleEdges), CompressionGzip},
		{"snappy", snappyBytes(t, sampleEdges), CompressionSnappy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "edges.txt", tt.data)

			rc, compression, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, compression)
			require.NoError(t, rc.Close())

			g, _, err := LoadEdges(path, Options{})
			require.NoError(t, err)
			assert.Equal(t, 3, g.NumNodes())
			assert.Equal(t, 2, g.NumEdges())
		})
	}
}

func TestLoadEdgesErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadEdges(filepath.Join(t.TempDir(), "nope.gz"), Options{})
		assert.True(t, errors.Is(err, ErrResourceUnavailable), "got %v", err)
	})

	t.Run("directory", func(t *testing.T) {
		_, _, err := LoadEdges(t.TempDir(), Options{})
		assert.True(t, errors.Is(err, ErrResourceUnavailable), "got %v", err)
	})

	t.Run("truncated gzip", func(t *testing.T) {
		data := gzipBytes(t, strings.Repeat("g a b 80\n", 200))
		path := writeFile(t, "edges.gz", data[:len(data)/2])
		_, _, err := LoadEdges(path, Options{})
		assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
	})

	t.Run("corrupt gzip header", func(t *testing.T) {
		path := writeFile(t, "edges.gz", []byte{0x1f, 0x8b, 0x00, 0x00})
		_, _, err := LoadEdges(path, Options{})
		assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
	})

	t.Run("over-long line", func(t *testing.T) {
		path := writeFile(t, "edges.txt", []byte("g a "+strings.Repeat("b", maxLineSize+10)+"\n"))
		_, _, err := LoadEdges(path, Options{})
		assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
	})
}

func TestParseGroundTruthSingleLine(t *testing.T) {
	gt, err := ParseGroundTruth(strings.NewReader("A,B,C\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, gt.NodeToGroup)
	assert.Equal(t, map[int][]string{1: {"A", "B", "C"}}, gt.GroupToNodes)
	assert.NoError(t, gt.Validate())
}

func TestParseGroundTruthGroupsFollowLineOrder(t *testing.T) {
	input := "# groups\n\n z , y\n\nx\n# trailing\nw,v,u\n"
	gt, err := ParseGroundTruth(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, gt.GroupIDs())
	assert.Equal(t, []string{"z", "y"}, gt.GroupToNodes[1])
	assert.Equal(t, []string{"x"}, gt.GroupToNodes[2])
	assert.Equal(t, []string{"w", "v", "u"}, gt.GroupToNodes[3])

	again, err := ParseGroundTruth(strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, gt, again)
}

func TestParseGroundTruthDuplicates(t *testing.T) {
	gt, err := ParseGroundTruth(strings.NewReader("a,a,b\nb,c\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, gt.GroupToNodes[1])
	group, ok := gt.Group("b")
	require.True(t, ok)
	assert.Equal(t, 2, group)
	assert.NoError(t, gt.Validate())
}

func TestParseGroundTruthErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty file", "", ErrEmptyGroundTruth},
		{"comments only", "# a\n\n# b\n", ErrEmptyGroundTruth},
		{"empty token", "a,,b\n", ErrEmptyNodeID},
		{"trailing comma", "a,b\nc,\n", ErrEmptyNodeID},
		{"blank token", "a, ,b\n", ErrEmptyNodeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroundTruth(strings.NewReader(tt.input), Options{})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLoadGroundTruth(t *testing.T) {
	path := writeFile(t, "grouping.gt.txt.gz", gzipBytes(t, "a,b\nc\n"))
	gt, err := LoadGroundTruth(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, gt.NumGroups())

	_, err = LoadGroundTruth(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
}
