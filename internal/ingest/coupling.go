package ingest

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// Defaults for commit-history coupling mining.
var (
	couplingCutoffMonths = 6
	couplingMaxFiles     = 50
	couplingMinStrength  = 0.3
)

// ProcessCoupling mines the repository's commit history for files that
// change together, restricted to commits newer than couplingCutoffMonths
// and discarding commits touching more than couplingMaxFiles files (merges,
// bulk reformats). Returns the number of coupled_with edges created. A
// repoPath with no VCS history produces zero edges.
func ProcessCoupling(g *graph.KnowledgeGraph, repoPath string) int {
	changes, err := commitFileSets(repoPath, couplingCutoffMonths, couplingMaxFiles)
	if err != nil || len(changes) == 0 {
		return 0
	}

	knownFiles := make(map[string]bool)
	for _, node := range g.GetNodesByLabel(graph.NodeFile) {
		knownFiles[node.FilePath] = true
	}

	known := make([][]string, 0, len(changes))
	for _, commit := range changes {
		var kept []string
		for _, f := range commit {
			if knownFiles[f] {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			known = append(known, kept)
		}
	}

	// totalChanges counts every commit touching a known file, including
	// single-file commits; only co-change pairing below requires >=2 files.
	totalChanges := make(map[string]int)
	for _, commit := range known {
		for _, file := range commit {
			totalChanges[file]++
		}
	}

	filtered := make([][]string, 0, len(known))
	for _, commit := range known {
		if len(commit) > 1 {
			filtered = append(filtered, commit)
		}
	}

	matrix := buildCoChangeMatrix(filtered)

	edgeCount := 0
	for fileA, coChanges := range matrix {
		for fileB, count := range coChanges {
			nodeA := g.GetNode(graph.GenerateID(graph.NodeFile, fileA, ""))
			nodeB := g.GetNode(graph.GenerateID(graph.NodeFile, fileB, ""))
			if nodeA == nil || nodeB == nil {
				continue
			}

			src, tgt := nodeA.ID, nodeB.ID
			if tgt < src {
				src, tgt = tgt, src
			}
			if src != nodeA.ID {
				continue // emit once per pair, from the lexicographically-first id
			}

			strength := computeCouplingStrength(count, totalChanges[fileA], totalChanges[fileB])
			if strength < couplingMinStrength {
				continue
			}

			g.AddRelationship(&graph.GraphRelationship{
				ID:     fmt.Sprintf("coupled:%s->%s", src, tgt),
				Type:   graph.RelCoupledWith,
				Source: src,
				Target: tgt,
				Properties: map[string]any{
					"strength":   strength,
					"co_changes": count,
				},
			})
			edgeCount++
		}
	}

	return edgeCount
}

// commitFileSets opens repoPath as a git repository and returns, for each
// commit newer than cutoffMonths touching at most maxFiles files, the list
// of file paths it modified (relative to the first-parent diff).
func commitFileSets(repoPath string, cutoffMonths, maxFiles int) ([][]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, -cutoffMonths, 0)
	commitIter, err := repo.Log(&git.LogOptions{From: head.Hash(), Since: &since})
	if err != nil {
		return nil, err
	}

	var changes [][]string
	err = commitIter.ForEach(func(c *object.Commit) error {
		stats, statErr := c.Stats()
		if statErr != nil {
			return nil
		}
		if len(stats) > maxFiles {
			return nil
		}
		files := make([]string, 0, len(stats))
		for _, s := range stats {
			files = append(files, s.Name)
		}
		if len(files) > 0 {
			changes = append(changes, files)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

// buildCoChangeMatrix builds a symmetric map[fileA]map[fileB]count from
// commits, each contributing one increment per unordered file pair.
func buildCoChangeMatrix(changes [][]string) map[string]map[string]int {
	matrix := make(map[string]map[string]int)

	for _, commit := range changes {
		for i := 0; i < len(commit); i++ {
			for j := i + 1; j < len(commit); j++ {
				fileA, fileB := commit[i], commit[j]

				if matrix[fileA] == nil {
					matrix[fileA] = make(map[string]int)
				}
				if matrix[fileB] == nil {
					matrix[fileB] = make(map[string]int)
				}

				matrix[fileA][fileB]++
				matrix[fileB][fileA]++
			}
		}
	}

	return matrix
}

// computeCouplingStrength is co_changes / max(totalA, totalB), in [0, 1].
func computeCouplingStrength(coChanges, totalA, totalB int) float64 {
	if totalA == 0 || totalB == 0 {
		return 0
	}
	maxTotal := totalA
	if totalB > maxTotal {
		maxTotal = totalB
	}
	return float64(coChanges) / float64(maxTotal)
}
