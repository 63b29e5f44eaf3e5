package storage

import (
	"context"
	"math"
	"sort"
)

// rrfCandidateMultiplier is how many candidates each ranker contributes
// relative to the requested limit, giving RRF a wider pool to fuse over.
const rrfCandidateMultiplier = 3

// HybridSearch combines FTS and vector search using Reciprocal Rank Fusion
// (RRF) with equal weights (w_fts = w_vec = 1). k is the RRF constant
// (typically 60). If lexical search returns nothing, a fuzzy-name match
// substitutes for it so the fusion still has a lexical-side contribution.
func HybridSearch(ctx context.Context, storage StorageBackend, query string, queryVector []float32, limit, k int) ([]HybridSearchResult, error) {
	return WeightedHybridSearch(ctx, storage, query, queryVector, limit, k, 1.0, 1.0)
}

// WeightedHybridSearch is HybridSearch with explicit per-ranker weights.
func WeightedHybridSearch(ctx context.Context, storage StorageBackend, query string, queryVector []float32, limit, k int, wFTS, wVec float64) ([]HybridSearchResult, error) {
	candidates := limit * rrfCandidateMultiplier

	ftsResults, err := storage.FTSSearch(ctx, query, candidates)
	if err != nil {
		ftsResults = nil
	}
	if len(ftsResults) == 0 {
		if fuzzy, fuzzyErr := storage.FuzzyNameSearch(ctx, query, candidates); fuzzyErr == nil {
			ftsResults = fuzzy
		}
	}

	var vectorResults []SearchResult
	if len(queryVector) > 0 {
		vectorResults, err = storage.VectorSearch(ctx, queryVector, candidates)
		if err != nil {
			vectorResults = nil
		}
	}

	rrfScores := make(map[string]float64)
	metadata := make(map[string]SearchResult)

	addRanked := func(results []SearchResult, weight float64) {
		seen := make(map[string]bool, len(results))
		for i, result := range results {
			if seen[result.NodeID] {
				continue // only a document's first occurrence within a list counts
			}
			seen[result.NodeID] = true

			rank := i + 1 // RRF rank is 1-based
			rrfScores[result.NodeID] += weight / float64(k+rank)
			if _, exists := metadata[result.NodeID]; !exists {
				metadata[result.NodeID] = result
			}
		}
	}

	addRanked(ftsResults, wFTS)
	addRanked(vectorResults, wVec)

	results := make([]HybridSearchResult, 0, len(rrfScores))
	for nodeID, score := range rrfScores {
		meta := metadata[nodeID]
		results = append(results, HybridSearchResult{
			NodeID:   nodeID,
			Score:    score,
			NodeName: meta.NodeName,
			FilePath: meta.FilePath,
			Label:    meta.Label,
			Snippet:  meta.Snippet,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
