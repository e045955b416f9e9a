package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type edgeRow struct {
	Src, Dst int
	Port     int
	Short    bool
}

func genEdgeRow() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 15),
		gen.IntRange(0, 15),
		gen.IntRange(1, 65535),
		gen.Weighted([]gen.WeightedGen{
			{Weight: 9, Gen: gen.Const(false)},
			{Weight: 1, Gen: gen.Const(true)},
		}),
	).Map(func(v []interface{}) edgeRow {
		return edgeRow{Src: v[0].(int), Dst: v[1].(int), Port: v[2].(int), Short: v[3].(bool)}
	})
}

func TestIngestionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("nodes are exactly the endpoints of valid lines", prop.ForAll(
		func(rows []edgeRow) bool {
			var sb strings.Builder
			want := make(map[string]bool)
			for _, r := range rows {
				src, dst := fmt.Sprintf("n%d", r.Src), fmt.Sprintf("n%d", r.Dst)
				if r.Short {
					fmt.Fprintf(&sb, "g1 %s\n", src)
					continue
				}
				fmt.Fprintf(&sb, "g1 %s %s %d\n", src, dst, r.Port)
				want[src] = true
				want[dst] = true
			}

			g, _, err := ParseEdges(strings.NewReader(sb.String()), Options{})
			if err != nil || g.NumNodes() != len(want) {
				return false
			}
			for _, n := range g.Nodes() {
				if !want[n] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genEdgeRow()),
	))

	properties.Property("edge set has no duplicate unordered pairs", prop.ForAll(
		func(rows []edgeRow) bool {
			var sb strings.Builder
			for _, r := range rows {
				fmt.Fprintf(&sb, "g1 n%d n%d\n", r.Src, r.Dst)
			}
			g, _, err := ParseEdges(strings.NewReader(sb.String()), Options{})
			if err != nil {
				return false
			}

			seen := make(map[[2]string]bool)
			for _, e := range g.Edges() {
				a, b := e[0], e[1]
				if a > b {
					a, b = b, a
				}
				key := [2]string{a, b}
				if seen[key] || a == b {
					return false
				}
				seen[key] = true
			}
			return len(seen) == g.NumEdges()
		},
		gen.SliceOf(genEdgeRow()),
	))

	properties.Property("ground truth mapping is bidirectionally consistent", prop.ForAll(
		func(groups [][]int) bool {
			var sb strings.Builder
			lines := 0
			for _, members := range groups {
				if len(members) == 0 {
					continue
				}
				tokens := make([]string, len(members))
				for i, m := range members {
					tokens[i] = fmt.Sprintf("node%d", m)
				}
				sb.WriteString(strings.Join(tokens, ", ") + "\n")
				lines++
			}

			gt, err := ParseGroundTruth(strings.NewReader(sb.String()), Options{})
			if lines == 0 {
				return err != nil
			}
			return err == nil && gt.NumGroups() == lines && gt.Validate() == nil
		},
		gen.SliceOf(gen.SliceOf(gen.IntRange(0, 30))),
	))

	properties.TestingRun(t)
}
