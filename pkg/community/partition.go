package community

import (
	"encoding/json"
	"fmt"

	gonum "gonum.org/v1/gonum/graph"
	gcommunity "gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gilchrisn/traffic-community-service/pkg/graph"
)

// Partition is the canonical detection result: an ordered sequence of
// disjoint communities. A node's label is the position of its community.
type Partition struct {
	communities [][]string
	labels      map[string]int
}

// FromCommunities builds a partition from node sets; the i-th non-empty set
// gets label i. A node listed twice is an error.
func FromCommunities(sets [][]string) (Partition, error) {
	p := Partition{
		communities: make([][]string, 0, len(sets)),
		labels:      make(map[string]int),
	}
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		label := len(p.communities)
		members := make([]string, len(set))
		for i, node := range set {
			if prev, dup := p.labels[node]; dup {
				return Partition{}, fmt.Errorf("%w: node %q in communities %d and %d", ErrInvalidPartition, node, prev, label)
			}
			p.labels[node] = label
			members[i] = node
		}
		p.communities = append(p.communities, members)
	}
	return p, nil
}

// FromAssignment builds a partition from a node -> label mapping. Communities
// are numbered in the order they are first met while walking order, and
// members keep that order; the source label values only group nodes.
func FromAssignment(order []string, assignment map[string]int) (Partition, error) {
	p := Partition{labels: make(map[string]int, len(order))}
	remap := make(map[int]int)

	for _, node := range order {
		src, ok := assignment[node]
		if !ok {
			return Partition{}, fmt.Errorf("%w: node %q has no community", ErrInvalidPartition, node)
		}
		if _, dup := p.labels[node]; dup {
			return Partition{}, fmt.Errorf("%w: node %q listed twice", ErrInvalidPartition, node)
		}
		label, seen := remap[src]
		if !seen {
			label = len(p.communities)
			remap[src] = label
			p.communities = append(p.communities, nil)
		}
		p.labels[node] = label
		p.communities[label] = append(p.communities[label], node)
	}
	if len(assignment) != len(order) {
		return Partition{}, fmt.Errorf("%w: %d assigned nodes but %d in order", ErrInvalidPartition, len(assignment), len(order))
	}
	return p, nil
}

// Len returns the number of communities
func (p Partition) Len() int { return len(p.communities) }

// NumNodes returns the number of assigned nodes
func (p Partition) NumNodes() int { return len(p.labels) }

// Communities returns the community sequence. The result must not be modified.
func (p Partition) Communities() [][]string { return p.communities }

// Label returns the community label of node
func (p Partition) Label(node string) (int, bool) {
	l, ok := p.labels[node]
	return l, ok
}

// Labels returns a copy of the node -> label mapping
func (p Partition) Labels() map[string]int {
	out := make(map[string]int, len(p.labels))
	for k, v := range p.labels {
		out[k] = v
	}
	return out
}

// Groups returns label -> members, the shape statistics are computed from
func (p Partition) Groups() map[int][]string {
	out := make(map[int][]string, len(p.communities))
	for i, members := range p.communities {
		out[i] = members
	}
	return out
}

// Validate checks that the communities are disjoint and cover exactly the nodes of g
func (p Partition) Validate(g *graph.Graph) error {
	seen := 0
	for label, members := range p.communities {
		for _, node := range members {
			if !g.HasNode(node) {
				return fmt.Errorf("%w: node %q is not in the graph", ErrInvalidPartition, node)
			}
			if p.labels[node] != label {
				return fmt.Errorf("%w: node %q listed under community %d but labelled %d", ErrInvalidPartition, node, label, p.labels[node])
			}
			seen++
		}
	}
	if seen != len(p.labels) || seen != g.NumNodes() {
		return fmt.Errorf("%w: %d of %d graph nodes assigned", ErrInvalidPartition, seen, g.NumNodes())
	}
	return nil
}

// MarshalJSON renders the partition in both representations
func (p Partition) MarshalJSON() ([]byte, error) {
	communities := p.communities
	if communities == nil {
		communities = [][]string{}
	}
	return json.Marshal(struct {
		Communities [][]string     `json:"communities"`
		Labels      map[string]int `json:"labels"`
	}{communities, p.Labels()})
}

// Modularity scores p on g with gonum's Q. A graph without edges scores 0.
func Modularity(g *graph.Graph, p Partition, resolution float64) float64 {
	if g.NumEdges() == 0 {
		return 0
	}
	comms := make([][]gonum.Node, len(p.communities))
	for i, members := range p.communities {
		comms[i] = make([]gonum.Node, 0, len(members))
		for _, node := range members {
			if idx, ok := g.Index(node); ok {
				comms[i] = append(comms[i], simple.Node(idx))
			}
		}
	}
	return gcommunity.Q(g.Undirected(), comms, resolution)
}

// singletons puts every node of g in its own community, in node order
func singletons(g *graph.Graph) Partition {
	sets := make([][]string, g.NumNodes())
	for i, node := range g.Nodes() {
		sets[i] = []string{node}
	}
	p, _ := FromCommunities(sets)
	return p
}

// fromIndexLabels converts per-index labels into a partition over g's nodes
func fromIndexLabels(g *graph.Graph, labels []int) (Partition, error) {
	assignment := make(map[string]int, len(labels))
	for i, l := range labels {
		assignment[g.ID(int64(i))] = l
	}
	return FromAssignment(g.Nodes(), assignment)
}
