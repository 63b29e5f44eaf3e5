package storage

import (
	"sort"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// fuzzyNameScore scores how closely a node name matches a query, in [0, 1].
// Exact and substring matches score highest; otherwise falls back to
// normalized Levenshtein distance, discarding anything below 0.5 similarity.
func fuzzyNameScore(name, query string) float64 {
	name = strings.ToLower(name)
	query = strings.ToLower(strings.TrimSpace(query))
	if name == "" || query == "" {
		return 0
	}
	if name == query {
		return 1
	}
	if strings.Contains(name, query) || strings.Contains(query, name) {
		return 0.75
	}

	maxLen := len(name)
	if len(query) > maxLen {
		maxLen = len(query)
	}
	if maxLen == 0 {
		return 0
	}

	similarity := 1 - float64(levenshteinDistance(name, query))/float64(maxLen)
	if similarity < 0.5 {
		return 0
	}
	return similarity
}

// levenshteinDistance computes the edit distance between two strings using
// the standard two-row dynamic-programming table.
func levenshteinDistance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < min {
				min = ins
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// fuzzyMatchNodes ranks nodes by name similarity to query, serving as the
// fallback ranker when lexical search yields nothing.
func fuzzyMatchNodes(nodes []*graph.GraphNode, query string, limit int) []SearchResult {
	type scoredNode struct {
		node  *graph.GraphNode
		score float64
	}

	candidates := make([]scoredNode, 0, len(nodes))
	for _, node := range nodes {
		if score := fuzzyNameScore(node.Name, query); score > 0 {
			candidates = append(candidates, scoredNode{node, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		snippet := c.node.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		results = append(results, SearchResult{
			NodeID:   c.node.ID,
			Score:    c.score,
			NodeName: c.node.Name,
			FilePath: c.node.FilePath,
			Label:    string(c.node.Label),
			Snippet:  snippet,
		})
	}
	return results
}
