package louvain

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Result represents the algorithm output
type Result struct {
	Levels           []LevelInfo `json:"levels"`
	FinalCommunities []int       `json:"final_communities"` // original node -> community, dense from 0
	NumCommunities   int         `json:"num_communities"`
	Modularity       float64     `json:"modularity"`
	NumLevels        int         `json:"num_levels"`
	Statistics       Statistics  `json:"statistics"`
}

// LevelInfo contains information about each hierarchical level
type LevelInfo struct {
	Level          int           `json:"level"`
	Communities    map[int][]int `json:"communities"` // community -> nodes of this level's graph
	Modularity     float64       `json:"modularity"`
	NumCommunities int           `json:"num_communities"`
	NumMoves       int           `json:"num_moves"`
	RuntimeMS      int64         `json:"runtime_ms"`
}

// Statistics contains algorithm performance metrics
type Statistics struct {
	TotalIterations int          `json:"total_iterations"`
	TotalMoves      int          `json:"total_moves"`
	RuntimeMS       int64        `json:"runtime_ms"`
	MemoryPeakMB    int64        `json:"memory_peak_mb"`
	LevelStats      []LevelStats `json:"level_stats"`
}

// LevelStats contains per-level statistics
type LevelStats struct {
	Level             int     `json:"level"`
	Iterations        int     `json:"iterations"`
	Moves             int     `json:"moves"`
	InitialModularity float64 `json:"initial_modularity"`
	FinalModularity   float64 `json:"final_modularity"`
	RuntimeMS         int64   `json:"runtime_ms"`
}

// Community represents the state of communities (simple arrays)
type Community struct {
	NodeToCommunity          []int     // nodeToComm[i] = community ID of node i
	CommunitySizes           []int     // sizes[c] = number of nodes in community c
	CommunityWeights         []float64 // commWeights[c] = total degree of community c
	CommunityInternalWeights []float64 // commInternal[c] = internal weight of community c, edges counted from both ends
	NumCommunities           int       // number of community slots
}

// NewCommunity initializes each node in its own community
func NewCommunity(graph *Graph) *Community {
	n := graph.NumNodes
	comm := &Community{
		NodeToCommunity:          make([]int, n),
		CommunitySizes:           make([]int, n),
		CommunityWeights:         make([]float64, n),
		CommunityInternalWeights: make([]float64, n),
		NumCommunities:           n,
	}

	for i := 0; i < n; i++ {
		comm.NodeToCommunity[i] = i
		comm.CommunitySizes[i] = 1
		comm.CommunityWeights[i] = graph.Degrees[i]
		comm.CommunityInternalWeights[i] = graph.GetEdgeWeight(i, i) * 2 // self-loops count double
	}

	return comm
}

// Members returns the nodes of every non-empty community, keyed by community ID
func (c *Community) Members() map[int][]int {
	members := make(map[int][]int)
	for node, comm := range c.NodeToCommunity {
		members[comm] = append(members[comm], node)
	}
	return members
}

// CalculateModularity computes Newman's modularity with the given resolution
func CalculateModularity(graph *Graph, comm *Community, resolution float64) float64 {
	if graph.TotalWeight == 0 {
		return 0.0
	}

	modularity := 0.0
	m2 := 2.0 * graph.TotalWeight

	for c := 0; c < comm.NumCommunities; c++ {
		if comm.CommunitySizes[c] == 0 {
			continue
		}

		internal := comm.CommunityInternalWeights[c]
		total := comm.CommunityWeights[c]

		modularity += internal/m2 - resolution*(total/m2)*(total/m2)
	}

	return modularity
}

// ModularityOf computes the modularity of an arbitrary assignment of graph nodes
func ModularityOf(graph *Graph, assignment []int, resolution float64) float64 {
	if graph.TotalWeight == 0 {
		return 0.0
	}

	internal := make(map[int]float64)
	total := make(map[int]float64)
	for u := 0; u < graph.NumNodes; u++ {
		total[assignment[u]] += graph.Degrees[u]
		for i, v := range graph.Adjacency[u] {
			if assignment[v] != assignment[u] {
				continue
			}
			if u == v {
				internal[assignment[u]] += 2 * graph.Weights[u][i]
			} else {
				internal[assignment[u]] += graph.Weights[u][i]
			}
		}
	}

	m2 := 2.0 * graph.TotalWeight
	modularity := 0.0
	for c, tot := range total {
		modularity += internal[c]/m2 - resolution*(tot/m2)*(tot/m2)
	}
	return modularity
}

// CalculateModularityGain computes the gain of inserting an isolated node into
// targetComm, up to the constant factor 1/m. edgeWeight is the weight between
// the node and the community.
func CalculateModularityGain(graph *Graph, comm *Community, node, targetComm int, edgeWeight, resolution float64) float64 {
	nodeDegree := graph.Degrees[node]
	commTotal := comm.CommunityWeights[targetComm]
	m2 := 2.0 * graph.TotalWeight

	return edgeWeight - resolution*(nodeDegree*commTotal)/m2
}

// neighborCommunities returns the communities adjacent to node in first-seen
// order, and the edge weight from node to each of them. Self-loops are excluded.
func neighborCommunities(graph *Graph, comm *Community, node int) ([]int, map[int]float64) {
	order := make([]int, 0)
	weightTo := make(map[int]float64)
	neighbors, weights := graph.GetNeighbors(node)

	for i, neighbor := range neighbors {
		if neighbor == node {
			continue
		}
		c := comm.NodeToCommunity[neighbor]
		if _, seen := weightTo[c]; !seen {
			order = append(order, c)
		}
		weightTo[c] += weights[i]
	}
	return order, weightTo
}

func removeNode(graph *Graph, comm *Community, node, c int, weightToComm float64) {
	selfLoop := graph.GetEdgeWeight(node, node)
	comm.CommunitySizes[c]--
	comm.CommunityWeights[c] -= graph.Degrees[node]
	comm.CommunityInternalWeights[c] -= 2 * (weightToComm + selfLoop)
	comm.NodeToCommunity[node] = -1
}

func insertNode(graph *Graph, comm *Community, node, c int, weightToComm float64) {
	selfLoop := graph.GetEdgeWeight(node, node)
	comm.CommunitySizes[c]++
	comm.CommunityWeights[c] += graph.Degrees[node]
	comm.CommunityInternalWeights[c] += 2 * (weightToComm + selfLoop)
	comm.NodeToCommunity[node] = c
}

// MoveNode moves a node to a different community
func MoveNode(graph *Graph, comm *Community, node, oldComm, newComm int) {
	if oldComm == newComm {
		return
	}

	_, weightTo := neighborCommunities(graph, comm, node)
	removeNode(graph, comm, node, oldComm, weightTo[oldComm])
	insertNode(graph, comm, node, newComm, weightTo[newComm])
}

// OneLevel performs one level of local optimization. Nodes are visited in an
// order shuffled by rng; each node is taken out of its community and put into
// the adjacent community with the best gain, staying put unless another
// community beats its own by more than the minimum gain.
func OneLevel(ctx context.Context, graph *Graph, comm *Community, config *Config, rng *rand.Rand, logger zerolog.Logger) (bool, int, int, error) {
	improvement := false
	totalMoves := 0
	iterations := 0

	if graph.TotalWeight == 0 {
		return false, 0, 0, nil
	}

	resolution := config.Resolution()
	minGain := config.MinModularityGain()

	// Create node processing order
	nodes := make([]int, graph.NumNodes)
	for i := 0; i < graph.NumNodes; i++ {
		nodes[i] = i
	}

	for iteration := 0; iteration < config.MaxIterations(); iteration++ {
		if err := ctx.Err(); err != nil {
			return improvement, totalMoves, iterations, err
		}
		iterations++
		iterationMoves := 0

		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		for _, node := range nodes {
			oldComm := comm.NodeToCommunity[node]
			order, weightTo := neighborCommunities(graph, comm, node)

			removeNode(graph, comm, node, oldComm, weightTo[oldComm])

			bestComm := oldComm
			bestGain := CalculateModularityGain(graph, comm, node, oldComm, weightTo[oldComm], resolution)
			for _, targetComm := range order {
				if targetComm == oldComm {
					continue
				}
				gain := CalculateModularityGain(graph, comm, node, targetComm, weightTo[targetComm], resolution)
				if gain > bestGain+minGain {
					bestComm = targetComm
					bestGain = gain
				}
			}

			insertNode(graph, comm, node, bestComm, weightTo[bestComm])
			if bestComm != oldComm {
				iterationMoves++
				improvement = true
			}
		}

		totalMoves += iterationMoves

		if config.EnableProgress() && iteration%10 == 0 {
			logger.Info().
				Int("iteration", iteration+1).
				Int("moves", iterationMoves).
				Float64("modularity", CalculateModularity(graph, comm, resolution)).
				Msg("Local optimization progress")
		}

		if iterationMoves == 0 {
			logger.Debug().Int("iteration", iteration+1).Msg("Converged: no moves")
			break
		}
	}

	return improvement, totalMoves, iterations, nil
}

// AggregateGraph creates a super-graph with one node per non-empty community.
// The returned slice maps community ID to super-node ID (-1 for empty communities).
func AggregateGraph(graph *Graph, comm *Community, logger zerolog.Logger) (*Graph, []int, error) {
	commToSuper := make([]int, comm.NumCommunities)
	numSuperNodes := 0
	for c := 0; c < comm.NumCommunities; c++ {
		commToSuper[c] = -1
		if comm.CommunitySizes[c] > 0 {
			commToSuper[c] = numSuperNodes
			numSuperNodes++
		}
	}

	if numSuperNodes == 0 {
		return nil, nil, fmt.Errorf("no valid communities found")
	}

	// Each non-loop edge is seen from both ends, a self-loop only once, so
	// self-loops are doubled here and everything is halved below.
	superEdges := make(map[[2]int]float64)
	for node := 0; node < graph.NumNodes; node++ {
		superI := commToSuper[comm.NodeToCommunity[node]]

		neighbors, weights := graph.GetNeighbors(node)
		for i, neighbor := range neighbors {
			superJ := commToSuper[comm.NodeToCommunity[neighbor]]

			edge := [2]int{superI, superJ}
			if superI > superJ {
				edge = [2]int{superJ, superI}
			}

			if neighbor == node {
				superEdges[edge] += 2 * weights[i]
			} else {
				superEdges[edge] += weights[i]
			}
		}
	}

	keys := make([][2]int, 0, len(superEdges))
	for edge := range superEdges {
		keys = append(keys, edge)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})

	superGraph := NewGraph(numSuperNodes)
	for _, edge := range keys {
		if weight := superEdges[edge]; weight > 0 {
			if err := superGraph.AddEdge(edge[0], edge[1], weight/2); err != nil {
				return nil, nil, fmt.Errorf("building super-graph: %w", err)
			}
		}
	}

	logger.Debug().
		Int("original_nodes", graph.NumNodes).
		Int("super_nodes", numSuperNodes).
		Float64("compression_ratio", float64(numSuperNodes)/float64(graph.NumNodes)).
		Msg("Graph aggregation completed")

	return superGraph, commToSuper, nil
}

// Run executes the complete Louvain algorithm
func Run(ctx context.Context, graph *Graph, config *Config) (*Result, error) {
	startTime := time.Now()
	logger := config.CreateLogger()
	resolution := config.Resolution()

	logger.Info().
		Int("nodes", graph.NumNodes).
		Float64("total_weight", graph.TotalWeight).
		Int64("seed", config.RandomSeed()).
		Msg("Starting Louvain algorithm")

	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	result := &Result{
		Levels:     make([]LevelInfo, 0),
		Statistics: Statistics{LevelStats: make([]LevelStats, 0)},
	}

	// membership[i] = node of the current level's graph holding original node i
	membership := make([]int, graph.NumNodes)
	for i := range membership {
		membership[i] = i
	}

	rng := rand.New(rand.NewSource(config.RandomSeed()))
	currentGraph := graph
	comm := NewCommunity(currentGraph)

	for level := 0; level < config.MaxLevels(); level++ {
		levelStart := time.Now()
		initialMod := CalculateModularity(currentGraph, comm, resolution)

		logger.Debug().
			Int("level", level).
			Int("nodes", currentGraph.NumNodes).
			Float64("initial_modularity", initialMod).
			Msg("Starting level")

		// Phase 1: Local optimization
		improvement, moves, iterations, err := OneLevel(ctx, currentGraph, comm, config, rng, logger)
		if err != nil {
			return nil, fmt.Errorf("local optimization failed at level %d: %w", level, err)
		}

		finalMod := CalculateModularity(currentGraph, comm, resolution)
		levelTime := time.Since(levelStart)

		levelInfo := LevelInfo{
			Level:       level,
			Communities: make(map[int][]int),
			Modularity:  finalMod,
			NumMoves:    moves,
			RuntimeMS:   levelTime.Milliseconds(),
		}

		commID := 0
		members := comm.Members()
		for c := 0; c < comm.NumCommunities; c++ {
			if nodes, ok := members[c]; ok {
				levelInfo.Communities[commID] = nodes
				commID++
			}
		}
		levelInfo.NumCommunities = commID

		result.Levels = append(result.Levels, levelInfo)
		result.Statistics.TotalMoves += moves
		result.Statistics.TotalIterations += iterations
		result.Statistics.LevelStats = append(result.Statistics.LevelStats, LevelStats{
			Level:             level,
			Iterations:        iterations,
			Moves:             moves,
			InitialModularity: initialMod,
			FinalModularity:   finalMod,
			RuntimeMS:         levelTime.Milliseconds(),
		})

		if !improvement {
			logger.Debug().Int("level", level).Msg("No improvement, stopping")
			break
		}

		if levelInfo.NumCommunities == 1 {
			logger.Debug().Int("level", level).Msg("Single community remaining, stopping")
			break
		}

		// Phase 2: Create super-graph
		superGraph, commToSuper, err := AggregateGraph(currentGraph, comm, logger)
		if err != nil {
			return nil, fmt.Errorf("aggregation failed at level %d: %w", level, err)
		}

		if superGraph.NumNodes >= currentGraph.NumNodes {
			logger.Debug().Msg("No compression achieved, stopping")
			break
		}

		for i, node := range membership {
			membership[i] = commToSuper[comm.NodeToCommunity[node]]
		}
		currentGraph = superGraph
		comm = NewCommunity(currentGraph)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// Dense community IDs in order of first appearance over original nodes
	result.FinalCommunities = make([]int, graph.NumNodes)
	dense := make(map[int]int)
	for i, node := range membership {
		c := comm.NodeToCommunity[node]
		id, ok := dense[c]
		if !ok {
			id = len(dense)
			dense[c] = id
		}
		result.FinalCommunities[i] = id
	}

	result.NumCommunities = len(dense)
	result.NumLevels = len(result.Levels)
	result.Modularity = ModularityOf(graph, result.FinalCommunities, resolution)
	result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()
	result.Statistics.MemoryPeakMB = getMemoryUsage()

	logger.Info().
		Int("levels", result.NumLevels).
		Int("communities", result.NumCommunities).
		Float64("final_modularity", result.Modularity).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Louvain algorithm completed")

	return result, nil
}

// getMemoryUsage returns current memory usage in MB
func getMemoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
