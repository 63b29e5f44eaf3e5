package embeddings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// EmbeddableLabels is the fixed set of node labels the batch embedding step
// selects, matching the symbols a user would plausibly search for.
var EmbeddableLabels = []graph.NodeLabel{
	graph.NodeFile,
	graph.NodeFunction,
	graph.NodeClass,
	graph.NodeMethod,
	graph.NodeInterface,
	graph.NodeTypeAlias,
	graph.NodeEnum,
}

// GenerateEmbeddingText synthesizes a natural-language description of a
// node using only graph context: a header line (label, name, class owner,
// file path), its signature, sorted callees/callers, types used, member
// methods, base classes, implemented interfaces, contained entities,
// community members, and process steps. Sections that don't apply to the
// node's label are omitted.
func GenerateEmbeddingText(g *graph.KnowledgeGraph, node *graph.GraphNode) string {
	if node == nil {
		return ""
	}

	var parts []string
	parts = append(parts, headerLine(node))

	if node.Signature != "" {
		parts = append(parts, "Signature: "+node.Signature)
	}

	if g == nil {
		return strings.Join(parts, ". ")
	}

	if callees := sortedTargetNames(g.GetCallees(node.ID)); len(callees) > 0 {
		parts = append(parts, "Calls: "+strings.Join(callees, ", "))
	}
	if callers := sortedCallerNames(g, node.ID); len(callers) > 0 {
		parts = append(parts, "Called by: "+strings.Join(callers, ", "))
	}
	if types := sortedRelTargetNames(g, node.ID, graph.RelUsesType); len(types) > 0 {
		parts = append(parts, "Uses types: "+strings.Join(types, ", "))
	}
	if node.Label == graph.NodeClass {
		if methods := sortedMemberMethods(g, node.Name); len(methods) > 0 {
			parts = append(parts, "Member methods: "+strings.Join(methods, ", "))
		}
	}
	if bases := sortedRelTargetNames(g, node.ID, graph.RelExtends); len(bases) > 0 {
		parts = append(parts, "Extends: "+strings.Join(bases, ", "))
	}
	if ifaces := sortedRelTargetNames(g, node.ID, graph.RelImplements); len(ifaces) > 0 {
		parts = append(parts, "Implements: "+strings.Join(ifaces, ", "))
	}
	if contained := sortedContainedEntities(g, node.ID); len(contained) > 0 {
		parts = append(parts, "Contains: "+strings.Join(contained, ", "))
	}
	if node.Label == graph.NodeCommunity {
		if members := sortedRelSourceNames(g, node.ID, graph.RelMemberOf); len(members) > 0 {
			parts = append(parts, "Members: "+strings.Join(members, ", "))
		}
	}
	if node.Label == graph.NodeProcess {
		if steps := processStepNames(g, node.ID); len(steps) > 0 {
			parts = append(parts, "Steps: "+strings.Join(steps, " -> "))
		}
	}

	if node.Content != "" {
		content := node.Content
		if len(content) > 500 {
			content = content[:500]
		}
		parts = append(parts, "Code: "+content)
	}

	return strings.Join(parts, ". ")
}

func headerLine(node *graph.GraphNode) string {
	header := fmt.Sprintf("%s %s", node.Label, node.Name)
	if node.ClassName != "" {
		header += fmt.Sprintf(" (method of %s)", node.ClassName)
	}
	if node.FilePath != "" {
		header += " in file " + node.FilePath
	}
	return header
}

func sortedTargetNames(nodes []*graph.GraphNode) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

func sortedCallerNames(g *graph.KnowledgeGraph, nodeID string) []string {
	var names []string
	for _, rel := range g.GetIncoming(nodeID, graph.RelCalls) {
		if src := g.GetNode(rel.Source); src != nil {
			names = append(names, src.Name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedRelTargetNames(g *graph.KnowledgeGraph, nodeID string, relType graph.RelType) []string {
	var names []string
	for _, rel := range g.GetOutgoing(nodeID, relType) {
		if target := g.GetNode(rel.Target); target != nil {
			names = append(names, target.Name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedRelSourceNames(g *graph.KnowledgeGraph, nodeID string, relType graph.RelType) []string {
	var names []string
	for _, rel := range g.GetIncoming(nodeID, relType) {
		if src := g.GetNode(rel.Source); src != nil {
			names = append(names, src.Name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedContainedEntities(g *graph.KnowledgeGraph, nodeID string) []string {
	var names []string
	for _, rel := range g.GetOutgoing(nodeID, graph.RelContains) {
		if target := g.GetNode(rel.Target); target != nil {
			names = append(names, target.Name)
		}
	}
	for _, rel := range g.GetOutgoing(nodeID, graph.RelDefines) {
		if target := g.GetNode(rel.Target); target != nil {
			names = append(names, target.Name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedMemberMethods(g *graph.KnowledgeGraph, className string) []string {
	var names []string
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if method.ClassName == className {
			names = append(names, method.Name)
		}
	}
	sort.Strings(names)
	return names
}

// processStepNames returns a process node's member symbol names ordered by
// their recorded step_number.
func processStepNames(g *graph.KnowledgeGraph, processID string) []string {
	type step struct {
		number int
		name   string
	}

	var steps []step
	for _, rel := range g.GetIncoming(processID, graph.RelStepInProcess) {
		src := g.GetNode(rel.Source)
		if src == nil {
			continue
		}
		number, _ := rel.Properties["step_number"].(int)
		steps = append(steps, step{number: number, name: src.Name})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].number < steps[j].number })

	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return names
}

// GenerateNodeText generates a shorter text representation for a node,
// used for quick indexing and search where the full embedding text would
// be excessive.
func GenerateNodeText(node *graph.GraphNode) string {
	if node == nil {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s %s", node.Label, node.Name))
	if node.Signature != "" {
		parts = append(parts, node.Signature)
	}
	if node.FilePath != "" {
		parts = append(parts, node.FilePath)
	}

	return strings.Join(parts, " ")
}
