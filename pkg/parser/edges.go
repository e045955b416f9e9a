package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// EdgeRecord is one parsed edge line
type EdgeRecord struct {
	GraphID string
	Source  string
	Target  string
	Aux     []string // trailing columns such as the port, not used by the core
}

// EdgeReport counts what happened to the lines of an edge file
type EdgeReport struct {
	Lines     int `json:"lines"`
	Comments  int `json:"comments"`
	Accepted  int `json:"accepted"`
	Skipped   int `json:"skipped"`
	SelfLoops int `json:"self_loops"`
}

// ParseEdgeRecord tokenizes a data line. ok is false when the line has fewer
// tokens than the layout requires.
func ParseEdgeRecord(line string, layout Layout) (rec EdgeRecord, ok bool) {
	fields := strings.Fields(line)
	need, src, dst := layout.minTokens()
	if len(fields) < need {
		return EdgeRecord{}, false
	}

	if layout == LayoutGraphPrefixed {
		rec.GraphID = fields[0]
	}
	rec.Source = fields[src]
	rec.Target = fields[dst]
	if len(fields) > need {
		rec.Aux = fields[need:]
	}
	return rec, true
}

// ParseEdges builds a graph from line-oriented edge records.
// Comment lines and short lines are skipped; they never fail the parse.
func ParseEdges(r io.Reader, opts Options) (*graph.Graph, EdgeReport, error) {
	g := graph.New()
	report := EdgeReport{}
	prefix := opts.commentPrefix()

	err := scanLines(r, func(lineNo int, line string) error {
		report.Lines++
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			report.Comments++
			return nil
		}

		rec, ok := ParseEdgeRecord(line, opts.Layout)
		if !ok {
			report.Skipped++
			opts.Logger.Debug().Int("line", lineNo).Msg("Skipping malformed edge record")
			return nil
		}

		if rec.Source == rec.Target {
			report.SelfLoops++
		}
		g.AddEdge(rec.Source, rec.Target)
		report.Accepted++
		return nil
	})
	if err != nil {
		return nil, report, classifyReadError(err)
	}

	return g, report, nil
}

// LoadEdges opens path (plain, gzip or snappy) and parses it with ParseEdges
func LoadEdges(path string, opts Options) (*graph.Graph, EdgeReport, error) {
	rc, compression, err := Open(path)
	if err != nil {
		return nil, EdgeReport{}, err
	}
	defer rc.Close()

	g, report, err := ParseEdges(rc, opts)
	if err != nil {
		return nil, report, fmt.Errorf("parse edges %s: %w", path, err)
	}

	opts.Logger.Info().
		Str("path", path).
		Str("compression", string(compression)).
		Int("lines", report.Lines).
		Int("skipped", report.Skipped).
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Msg("Edge list loaded")

	return g, report, nil
}
