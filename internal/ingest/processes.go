package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// Defaults for bounded flow tracing.
var (
	processBranchingFactor = 3
	processMaxDepth        = 6
	processMaxSize         = 25
	processOverlapLimit    = 0.5
)

// entryPointDecoratorMarkers are decorator substrings that mark a symbol as
// a framework-registered entry point (route handlers, CLI commands, etc).
var entryPointDecoratorMarkers = []string{
	"app.route", "router", "click.command", "app.get", "app.post",
	"app.put", "app.delete", "cli.command",
}

// entryPointNames are bare names that, combined with having no incoming
// calls, mark a symbol as an entry point.
var entryPointNames = map[string]bool{
	"main": true, "cli": true, "run": true, "app": true,
	"handler": true, "entrypoint": true,
}

// entryPointFileBasenames are file names whose top-level symbols are
// treated as entry points when they have no incoming calls.
var entryPointFileBasenames = map[string]bool{
	"__main__.py": true, "cli.py": true, "main.py": true, "app.py": true,
}

// ProcessProcesses detects execution flows from entry points via bounded
// BFS along outgoing calls edges, deduplicates near-identical flows, and
// emits a Process node plus step_in_process edges for each surviving flow.
// Returns the number of Process nodes created.
func ProcessProcesses(g *graph.KnowledgeGraph) int {
	entryPoints := findEntryPoints(g)

	var allFlows [][]string
	for _, ep := range entryPoints {
		flow := traceFlow(g, ep.ID)
		if len(flow) > 1 {
			allFlows = append(allFlows, flow)
		}
	}

	allFlows = deduplicateFlows(allFlows)

	memberOf := buildMemberOfIndex(g)

	processCount := 0
	for i, flow := range allFlows {
		processID := fmt.Sprintf("process:process_%d:", i)
		kind := classifyProcessKind(flow, memberOf)

		processNode := &graph.GraphNode{
			ID:    processID,
			Label: graph.NodeProcess,
			Name:  processLabel(g, flow),
			Properties: map[string]any{
				"step_count": len(flow),
				"kind":       kind,
			},
		}
		g.AddNode(processNode)
		processCount++

		for step, nodeID := range flow {
			g.AddRelationship(&graph.GraphRelationship{
				ID:     fmt.Sprintf("step:%s:%s:%d", nodeID, processID, step),
				Type:   graph.RelStepInProcess,
				Source: nodeID,
				Target: processID,
				Properties: map[string]any{
					"step_number": step,
				},
			})
		}
	}

	return processCount
}

// findEntryPoints applies the OR-of-rules entry-point heuristic: a
// framework-pattern match, OR zero incoming calls combined with being
// exported, conventionally named, or defined in a conventionally named
// entry file.
func findEntryPoints(g *graph.KnowledgeGraph) []*graph.GraphNode {
	var entryPoints []*graph.GraphNode
	for node := range g.IterNodes() {
		if node.Label != graph.NodeFunction && node.Label != graph.NodeMethod {
			continue
		}
		if isEntryPoint(g, node) {
			entryPoints = append(entryPoints, node)
		}
	}
	sort.Slice(entryPoints, func(i, j int) bool { return entryPoints[i].ID < entryPoints[j].ID })
	return entryPoints
}

func isEntryPoint(g *graph.KnowledgeGraph, node *graph.GraphNode) bool {
	if strings.HasPrefix(node.Name, "test_") || node.Name == "main" {
		return true
	}

	for _, dec := range node.Decorators {
		for _, marker := range entryPointDecoratorMarkers {
			if strings.Contains(dec, marker) {
				return true
			}
		}
	}

	if node.Language == "typescript" || node.Language == "javascript" {
		if node.Name == "handler" || node.Name == "middleware" || node.IsExported {
			return true
		}
	}

	if g.HasIncoming(node.ID, graph.RelCalls) {
		return false
	}

	if node.IsExported {
		return true
	}
	if entryPointNames[node.Name] {
		return true
	}
	base := node.FilePath
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return entryPointFileBasenames[base]
}

// traceFlow performs a bounded BFS from startNodeID along outgoing calls
// edges: at each node outgoing edges are sorted by confidence (descending,
// tie-broken by edge id for determinism) and only the top
// processBranchingFactor are followed; traversal stops at processMaxDepth
// or when the flow reaches processMaxSize nodes.
func traceFlow(g *graph.KnowledgeGraph, startNodeID string) []string {
	flow := []string{startNodeID}
	visited := map[string]bool{startNodeID: true}

	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{id: startNodeID, depth: 0}}

	for len(queue) > 0 && len(flow) < processMaxSize {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= processMaxDepth {
			continue
		}

		outgoing := g.GetOutgoing(current.id, graph.RelCalls)
		sort.Slice(outgoing, func(i, j int) bool {
			ci := confidenceOf(outgoing[i])
			cj := confidenceOf(outgoing[j])
			if ci != cj {
				return ci > cj
			}
			return outgoing[i].ID < outgoing[j].ID
		})

		taken := 0
		for _, rel := range outgoing {
			if taken >= processBranchingFactor {
				break
			}
			if visited[rel.Target] {
				continue
			}
			visited[rel.Target] = true
			flow = append(flow, rel.Target)
			queue = append(queue, queued{id: rel.Target, depth: current.depth + 1})
			taken++
			if len(flow) >= processMaxSize {
				break
			}
		}
	}

	return flow
}

func confidenceOf(rel *graph.GraphRelationship) float64 {
	if rel.Properties == nil {
		return 0
	}
	if c, ok := rel.Properties["confidence"].(float64); ok {
		return c
	}
	return 0
}

// deduplicateFlows sorts flows by length descending and keeps a flow only
// if it overlaps less than processOverlapLimit with every flow already
// kept; flows of a single node are dropped outright.
func deduplicateFlows(flows [][]string) [][]string {
	sort.Slice(flows, func(i, j int) bool { return len(flows[i]) > len(flows[j]) })

	var kept [][]string
	var keptSets []map[string]bool

	for _, flow := range flows {
		if len(flow) < 2 {
			continue
		}

		set := make(map[string]bool, len(flow))
		for _, id := range flow {
			set[id] = true
		}

		overlaps := false
		for _, ks := range keptSets {
			overlap := 0
			for id := range set {
				if ks[id] {
					overlap++
				}
			}
			ratio := float64(overlap) / float64(len(set))
			if ratio >= processOverlapLimit {
				overlaps = true
				break
			}
		}

		if !overlaps {
			kept = append(kept, flow)
			keptSets = append(keptSets, set)
		}
	}

	return kept
}

// buildMemberOfIndex maps a callable node id to its community node id, if any.
func buildMemberOfIndex(g *graph.KnowledgeGraph) map[string]string {
	idx := make(map[string]string)
	for _, rel := range g.GetRelationshipsByType(graph.RelMemberOf) {
		idx[rel.Source] = rel.Target
	}
	return idx
}

// classifyProcessKind labels a flow intra_community when every step shares
// one community, cross_community when steps span more than one, and
// unknown when no step belongs to any community.
func classifyProcessKind(flow []string, memberOf map[string]string) string {
	communities := make(map[string]bool)
	for _, id := range flow {
		if c, ok := memberOf[id]; ok {
			communities[c] = true
		}
	}
	switch len(communities) {
	case 0:
		return "unknown"
	case 1:
		return "intra_community"
	default:
		return "cross_community"
	}
}

// processLabel renders a flow as "A → B → C → D", capped at four names; a
// single-step flow is rendered as just that name.
func processLabel(g *graph.KnowledgeGraph, flow []string) string {
	names := make([]string, 0, len(flow))
	for _, id := range flow {
		if n := g.GetNode(id); n != nil {
			names = append(names, n.Name)
		}
	}
	if len(names) == 0 {
		return "Unknown Process"
	}
	if len(names) > 4 {
		names = names[:4]
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names, " → ")
}
