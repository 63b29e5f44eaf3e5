package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// StructuralDiff is the result of comparing two knowledge-graph snapshots.
type StructuralDiff struct {
	AddedNodes    []*graph.GraphNode
	RemovedNodes  []*graph.GraphNode
	ModifiedNodes []ModifiedNode

	AddedRelationships   []*graph.GraphRelationship
	RemovedRelationships []*graph.GraphRelationship
}

// ModifiedNode pairs a node's base and current revision.
type ModifiedNode struct {
	Base    *graph.GraphNode
	Current *graph.GraphNode
}

// DiffGraphs compares a base and current graph snapshot by node and
// relationship id. A node present in both is "modified" when its content,
// signature, or line span differs; relationships are compared by id alone.
func DiffGraphs(base, current *graph.KnowledgeGraph) *StructuralDiff {
	diff := &StructuralDiff{}

	baseNodes := nodesByID(base)
	currentNodes := nodesByID(current)

	for id, node := range currentNodes {
		if _, ok := baseNodes[id]; !ok {
			diff.AddedNodes = append(diff.AddedNodes, node)
		}
	}
	for id, node := range baseNodes {
		if _, ok := currentNodes[id]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, node)
		}
	}
	for id, baseNode := range baseNodes {
		currentNode, ok := currentNodes[id]
		if !ok {
			continue
		}
		if nodeContentChanged(baseNode, currentNode) {
			diff.ModifiedNodes = append(diff.ModifiedNodes, ModifiedNode{Base: baseNode, Current: currentNode})
		}
	}

	baseRels := relsByID(base)
	currentRels := relsByID(current)
	for id, rel := range currentRels {
		if _, ok := baseRels[id]; !ok {
			diff.AddedRelationships = append(diff.AddedRelationships, rel)
		}
	}
	for id, rel := range baseRels {
		if _, ok := currentRels[id]; !ok {
			diff.RemovedRelationships = append(diff.RemovedRelationships, rel)
		}
	}

	sortNodesByID(diff.AddedNodes)
	sortNodesByID(diff.RemovedNodes)
	sort.Slice(diff.ModifiedNodes, func(i, j int) bool {
		return diff.ModifiedNodes[i].Base.ID < diff.ModifiedNodes[j].Base.ID
	})
	sortRelsByID(diff.AddedRelationships)
	sortRelsByID(diff.RemovedRelationships)

	return diff
}

func nodesByID(g *graph.KnowledgeGraph) map[string]*graph.GraphNode {
	out := make(map[string]*graph.GraphNode)
	for n := range g.IterNodes() {
		out[n.ID] = n
	}
	return out
}

func relsByID(g *graph.KnowledgeGraph) map[string]*graph.GraphRelationship {
	out := make(map[string]*graph.GraphRelationship)
	for r := range g.IterRelationships() {
		out[r.ID] = r
	}
	return out
}

func nodeContentChanged(base, current *graph.GraphNode) bool {
	return base.Content != current.Content ||
		base.Signature != current.Signature ||
		base.StartLine != current.StartLine ||
		base.EndLine != current.EndLine
}

func sortNodesByID(nodes []*graph.GraphNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortRelsByID(rels []*graph.GraphRelationship) {
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
}

// DiffBranches parses a "base..current" range (or a bare "base", meaning
// base vs. the working tree) and diffs the two resulting graphs. Each ref
// other than the working tree is built by checking it out into a temporary
// git worktree; both builds run in parallel when both require one.
func DiffBranches(ctx context.Context, repoPath, branchRange string) (*StructuralDiff, error) {
	base, current, hasCurrent := splitBranchRange(branchRange)

	var baseGraph, currentGraph *graph.KnowledgeGraph
	var baseErr, currentErr error
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		baseGraph, baseErr = buildGraphForRef(ctx, repoPath, base)
	}()

	if hasCurrent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			currentGraph, currentErr = buildGraphForRef(ctx, repoPath, current)
		}()
		wg.Wait()
	} else {
		currentGraph, currentErr = buildGraphDirect(ctx, repoPath)
		wg.Wait()
	}

	if baseErr != nil {
		return nil, fmt.Errorf("building base graph for %q: %w", base, baseErr)
	}
	if currentErr != nil {
		return nil, fmt.Errorf("building current graph: %w", currentErr)
	}

	return DiffGraphs(baseGraph, currentGraph), nil
}

// splitBranchRange splits "base..current" into its two refs. A range with
// no ".." names only a base ref, to be compared against the working tree.
func splitBranchRange(branchRange string) (base, current string, hasCurrent bool) {
	if idx := strings.Index(branchRange, ".."); idx >= 0 {
		return branchRange[:idx], branchRange[idx+2:], true
	}
	return branchRange, "", false
}

func buildGraphDirect(ctx context.Context, repoPath string) (*graph.KnowledgeGraph, error) {
	g, _, err := RunPipeline(ctx, repoPath, nil, true, nil, false)
	return g, err
}

// buildGraphForRef checks ref out into a fresh git worktree and builds a
// graph from it, guaranteeing the worktree is removed on every exit path.
func buildGraphForRef(ctx context.Context, repoPath, ref string) (*graph.KnowledgeGraph, error) {
	tmpDir, err := os.MkdirTemp("", "axon-diff-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	worktreePath := filepath.Join(tmpDir, "worktree")

	add := exec.CommandContext(ctx, "git", "worktree", "add", "--detach", worktreePath, ref)
	add.Dir = repoPath
	if out, err := add.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git worktree add %s: %w: %s", ref, err, out)
	}
	defer func() {
		remove := exec.Command("git", "worktree", "remove", "--force", worktreePath)
		remove.Dir = repoPath
		_ = remove.Run()
	}()

	return buildGraphDirect(ctx, worktreePath)
}

// FormatDiff renders a StructuralDiff as a human-readable summary.
func FormatDiff(diff *StructuralDiff) string {
	total := len(diff.AddedNodes) + len(diff.RemovedNodes) + len(diff.ModifiedNodes) +
		len(diff.AddedRelationships) + len(diff.RemovedRelationships)

	var b strings.Builder
	fmt.Fprintf(&b, "Structural diff: %d changes\n", total)

	if len(diff.AddedNodes) > 0 {
		b.WriteString("Added nodes:\n")
		for _, n := range diff.AddedNodes {
			fmt.Fprintf(&b, "  + %s (%s) -- %s\n", n.Name, n.Label, n.FilePath)
		}
	}
	if len(diff.RemovedNodes) > 0 {
		b.WriteString("Removed nodes:\n")
		for _, n := range diff.RemovedNodes {
			fmt.Fprintf(&b, "  - %s (%s) -- %s\n", n.Name, n.Label, n.FilePath)
		}
	}
	if len(diff.ModifiedNodes) > 0 {
		b.WriteString("Modified nodes:\n")
		for _, m := range diff.ModifiedNodes {
			fmt.Fprintf(&b, "  ~ %s (%s) -- %s\n", m.Current.Name, m.Current.Label, m.Current.FilePath)
		}
	}
	if len(diff.AddedRelationships) > 0 {
		b.WriteString("Added relationships:\n")
		for _, r := range diff.AddedRelationships {
			fmt.Fprintf(&b, "  + [%s] %s -> %s\n", r.Type, r.Source, r.Target)
		}
	}
	if len(diff.RemovedRelationships) > 0 {
		b.WriteString("Removed relationships:\n")
		for _, r := range diff.RemovedRelationships {
			fmt.Fprintf(&b, "  - [%s] %s -> %s\n", r.Type, r.Source, r.Target)
		}
	}

	return b.String()
}
