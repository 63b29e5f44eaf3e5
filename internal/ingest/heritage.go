package ingest

import (
	"github.com/knowgraph/knowgraph/internal/graph"
	"github.com/knowgraph/knowgraph/internal/parse"
)

// protocolMarkers names the base-class markers that, when an otherwise
// unresolvable parent, flag the child as a structural-conformance type
// rather than an omission. Kept as a package-level var so it stays
// configurable even though the spec's default list is small and fixed.
var protocolMarkers = map[string]bool{
	"Protocol": true,
	"ABC":      true,
	"ABCMeta":  true,
}

// ProcessHeritage resolves each (child, kind, parent) heritage tuple to an
// extends or implements relationship. Resolution prefers a same-file
// definition of the parent name, falling back to the first global match.
// When the parent cannot be resolved at all and its name is a known
// protocol marker (Protocol, ABC, ABCMeta), the child is flagged
// is_protocol instead of emitting a dangling edge.
func ProcessHeritage(parseData *ParseData, g *graph.KnowledgeGraph) {
	nameIdx := buildNameIndex(g, graph.NodeClass, graph.NodeInterface)

	for filePath, result := range parseData.Files {
		for _, h := range result.Heritage {
			childID := findSymbolInFile(g, nameIdx, h.ClassName, filePath)
			if childID == "" {
				continue
			}

			parentID := resolveHeritageName(g, nameIdx, h.ParentName, filePath)
			if parentID == "" {
				if protocolMarkers[h.ParentName] {
					markProtocol(g, childID)
				}
				continue
			}

			relType := graph.RelExtends
			if h.Kind == parse.HeritageImplements {
				relType = graph.RelImplements
			}

			g.AddRelationship(&graph.GraphRelationship{
				ID:     string(relType) + ":" + childID + "->" + parentID,
				Type:   relType,
				Source: childID,
				Target: parentID,
			})
		}
	}
}

// resolveHeritageName finds a candidate for name, preferring one defined in
// sameFile, falling back to the first global match.
func resolveHeritageName(g *graph.KnowledgeGraph, idx nameIndex, name, sameFile string) string {
	candidates := idx[name]
	if len(candidates) == 0 {
		return ""
	}
	for _, id := range candidates {
		if n := g.GetNode(id); n != nil && n.FilePath == sameFile {
			return id
		}
	}
	return candidates[0]
}

// findSymbolInFile finds the candidate for name defined in filePath.
func findSymbolInFile(g *graph.KnowledgeGraph, idx nameIndex, name, filePath string) string {
	for _, id := range idx[name] {
		if n := g.GetNode(id); n != nil && n.FilePath == filePath {
			return id
		}
	}
	return ""
}

func markProtocol(g *graph.KnowledgeGraph, nodeID string) {
	n := g.GetNode(nodeID)
	if n == nil {
		return
	}
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties["is_protocol"] = true
}
