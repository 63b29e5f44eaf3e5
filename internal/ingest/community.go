package ingest

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// minCommunitySize is the smallest member count a detected community may
// have before it is discarded as noise. Kept as a var so it stays
// configurable, defaulting to the spec's value.
var minCommunitySize = 2

// DetectCommunities projects the callable subgraph ({function, method,
// class} nodes, calls edges) into an undirected weighted adjacency matrix
// (each calls edge is added in both directions, so edge direction is not
// kept) and partitions it
// with a Louvain-style modularity optimizer (the closest stand-in available
// without a dedicated Leiden implementation). Communities smaller than
// minCommunitySize are discarded. If fewer than three callable nodes exist
// at all, the phase is a no-op — there is nothing meaningful to cluster.
// Returns the number of Community nodes created.
func DetectCommunities(g *graph.KnowledgeGraph) int {
	symbolNodes := getSymbolNodes(g)
	if len(symbolNodes) < 3 {
		return 0
	}

	matrix, _, indexNode := buildAdjacencyMatrix(g)
	if len(matrix) == 0 {
		return 0
	}

	communities, modularity := assignCommunities(matrix)

	communityMap := make(map[int][]string)
	for nodeIdx, commID := range communities {
		communityMap[commID] = append(communityMap[commID], indexNode[nodeIdx])
	}

	communityCount := 0
	for commID, members := range communityMap {
		if len(members) < minCommunitySize {
			continue
		}
		sort.Strings(members)

		communityID := fmt.Sprintf("community:community_%d:", commID)
		label := communityLabel(g, members)

		communityNode := &graph.GraphNode{
			ID:       communityID,
			Label:    graph.NodeCommunity,
			Name:     label,
			FilePath: "",
			Properties: map[string]any{
				"cohesion":     modularity,
				"symbol_count": len(members),
			},
		}
		g.AddNode(communityNode)
		communityCount++

		for _, memberID := range members {
			g.AddRelationship(&graph.GraphRelationship{
				ID:     "member_of:" + memberID + "->" + communityID,
				Type:   graph.RelMemberOf,
				Source: memberID,
				Target: communityID,
			})
		}
	}

	return communityCount
}

// getSymbolNodes returns all callable nodes (functions, methods, classes).
func getSymbolNodes(g *graph.KnowledgeGraph) []*graph.GraphNode {
	var symbols []*graph.GraphNode
	for _, label := range []graph.NodeLabel{graph.NodeFunction, graph.NodeMethod, graph.NodeClass} {
		symbols = append(symbols, g.GetNodesByLabel(label)...)
	}
	return symbols
}

// buildAdjacencyMatrix builds an undirected adjacency matrix over the
// callable subgraph from its calls edges.
func buildAdjacencyMatrix(g *graph.KnowledgeGraph) ([][]float64, map[string]int, []string) {
	symbolNodes := getSymbolNodes(g)
	n := len(symbolNodes)
	if n == 0 {
		return nil, nil, nil
	}

	nodeIndex := make(map[string]int)
	indexNode := make([]string, n)
	for i, node := range symbolNodes {
		nodeIndex[node.ID] = i
		indexNode[i] = node.ID
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for _, rel := range g.GetRelationshipsByType(graph.RelCalls) {
		srcIdx, srcOk := nodeIndex[rel.Source]
		tgtIdx, tgtOk := nodeIndex[rel.Target]
		if srcOk && tgtOk {
			matrix[srcIdx][tgtIdx] += 1.0
			matrix[tgtIdx][srcIdx] += 1.0
		}
	}

	return matrix, nodeIndex, indexNode
}

// assignCommunities partitions the graph using a simplified Louvain-style
// local-move optimizer and returns the per-node community assignment along
// with the final partition's modularity score.
func assignCommunities(adjMatrix [][]float64) ([]int, float64) {
	n := len(adjMatrix)
	if n == 0 {
		return []int{}, 0
	}
	if n == 1 {
		return []int{0}, 0
	}

	communities := make([]int, n)
	for i := range communities {
		communities[i] = i
	}

	// Seeded local source: the same adjacency matrix (and therefore the same
	// node ordering) must always produce the same partition across runs.
	rng := rand.New(rand.NewSource(1))

	var totalWeight float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			totalWeight += adjMatrix[i][j]
		}
	}
	if totalWeight == 0 {
		return communities, 0
	}

	degrees := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degrees[i] += adjMatrix[i][j]
		}
	}

	improved := true
	iterations := 0
	const maxIterations = 100

	for improved && iterations < maxIterations {
		improved = false
		iterations++

		for _, node := range rng.Perm(n) {
			bestComm := communities[node]
			bestGain := 0.0

			neighborComms := make(map[int]bool)
			for j := 0; j < n; j++ {
				if adjMatrix[node][j] > 0 {
					neighborComms[communities[j]] = true
				}
			}

			for comm := range neighborComms {
				if comm == bestComm {
					continue
				}
				communities[node] = comm
				gain := calculateModularityGain(node, comm, communities, adjMatrix, degrees, totalWeight)
				if gain > bestGain {
					bestGain = gain
					bestComm = comm
					improved = true
				}
			}

			communities[node] = bestComm
		}
	}

	communityMap := make(map[int]int)
	nextComm := 0
	for i := range communities {
		if _, exists := communityMap[communities[i]]; !exists {
			communityMap[communities[i]] = nextComm
			nextComm++
		}
		communities[i] = communityMap[communities[i]]
	}

	return communities, partitionModularity(adjMatrix, communities, degrees, totalWeight)
}

func calculateModularityGain(node, comm int, communities []int, adjMatrix [][]float64, degrees []float64, totalWeight float64) float64 {
	n := len(communities)

	var sigmaIn, sigmaTot float64
	for j := 0; j < n; j++ {
		if communities[j] == comm && j != node {
			sigmaIn += adjMatrix[node][j]
			sigmaTot += degrees[j]
		}
	}
	sigmaTot += degrees[node]

	ki := degrees[node]
	return (sigmaIn / totalWeight) - ((ki * sigmaTot) / (totalWeight * totalWeight))
}

// partitionModularity computes the standard Newman modularity Q for the
// given partition: sum over edges inside the same community of
// (A_ij - k_i*k_j/2m) / 2m.
func partitionModularity(adjMatrix [][]float64, communities []int, degrees []float64, totalWeight float64) float64 {
	n := len(adjMatrix)
	if totalWeight == 0 {
		return 0
	}

	var q float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if communities[i] != communities[j] {
				continue
			}
			q += adjMatrix[i][j] - (degrees[i]*degrees[j])/totalWeight
		}
	}
	return q / totalWeight
}

// communityLabel derives a human-readable label from the last directory
// component of each member's file path: if every member shares the same
// directory name, that name is used; otherwise the two most frequent
// directory names are joined with "+"; an empty result falls back to
// "Cluster".
func communityLabel(g *graph.KnowledgeGraph, members []string) string {
	counts := make(map[string]int)
	var order []string

	for _, memberID := range members {
		node := g.GetNode(memberID)
		if node == nil || node.FilePath == "" {
			continue
		}
		dir := filepath.ToSlash(filepath.Dir(node.FilePath))
		name := dir
		if dir != "." {
			name = filepath.Base(dir)
		}
		if name == "" || name == "." {
			continue
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	if len(counts) == 0 {
		return "Cluster"
	}
	if len(counts) == 1 {
		return order[0]
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) == 1 {
		return order[0]
	}
	return order[0] + "+" + order[1]
}
