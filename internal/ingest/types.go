package ingest

import (
	"github.com/knowgraph/knowgraph/internal/graph"
)

// ProcessTypes resolves each type reference to a class/interface/type_alias
// definition and emits a uses_type relationship carrying the usage role
// (param, return, variable). The owning symbol is found via the same
// same-file-preferred/first-global-fallback resolution as heritage; the
// source symbol is the smallest enclosing function or method, found
// through the shared interval index.
func ProcessTypes(parseData *ParseData, g *graph.KnowledgeGraph) {
	nameIdx := buildNameIndex(g, graph.NodeClass, graph.NodeInterface, graph.NodeTypeAlias)
	callableIdx := buildFileSymbolIndex(g, graph.NodeFunction, graph.NodeMethod)

	emitted := make(map[string]bool)

	for filePath, result := range parseData.Files {
		for _, ref := range result.TypeRefs {
			sourceID := callableIdx.FindContainingSymbol(filePath, ref.Line)
			if sourceID == "" {
				continue
			}

			targetID := resolveHeritageName(g, nameIdx, ref.Name, filePath)
			if targetID == "" || targetID == sourceID {
				continue
			}

			id := "uses_type:" + sourceID + "->" + targetID + ":" + string(ref.Kind)
			if emitted[id] {
				continue
			}
			emitted[id] = true

			g.AddRelationship(&graph.GraphRelationship{
				ID:     id,
				Type:   graph.RelUsesType,
				Source: sourceID,
				Target: targetID,
				Properties: map[string]any{
					"role":       string(ref.Kind),
					"param_name": ref.ParamName,
				},
			})
		}
	}
}
