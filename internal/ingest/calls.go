package ingest

import (
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// callbackConfidenceFactor scales the confidence of an edge synthesized
// from a bare-identifier call argument (callback tracking).
const callbackConfidenceFactor = 0.8

// receiverMethodConfidence is the confidence of the method-lookup edge
// emitted alongside a non-self/this receiver call (R.m()).
const receiverMethodConfidence = 0.8

// globalFuzzyConfidence is the confidence of a name-only match with no
// same-file or import evidence.
const globalFuzzyConfidence = 0.5

// exactConfidence is the confidence of a self/same-file/import-resolved
// match.
const exactConfidence = 1.0

// ProcessCalls resolves each call site to a target symbol and emits a calls
// relationship, following the five-step resolution order from the spec:
// self/this-method, same-file exact name, import-resolved, global fuzzy
// (shortest path wins), otherwise no edge. Every bare-identifier call
// argument is additionally resolved as a call scaled by
// callbackConfidenceFactor (callback tracking), and a non-self/this
// receiver call also emits a receiver-scoped method lookup at
// receiverMethodConfidence. Decorators are modeled as implicit calls from
// the decorated symbol to the decorator. Edges are deduped by id.
func ProcessCalls(parseData *ParseData, g *graph.KnowledgeGraph) {
	nameIdx := buildNameIndex(g, graph.NodeFunction, graph.NodeMethod, graph.NodeClass)
	callableIdx := buildFileSymbolIndex(g, graph.NodeFunction, graph.NodeMethod)
	importedFiles := buildImportedFileIndex(g)

	emitted := make(map[string]bool)

	for filePath, result := range parseData.Files {
		for _, call := range result.Calls {
			sourceID := callableIdx.FindContainingSymbol(filePath, call.Line)
			if sourceID == "" {
				continue
			}
			sourceNode := g.GetNode(sourceID)
			if sourceNode == nil {
				continue
			}

			if targetID, conf, ok := resolveCallTarget(g, nameIdx, importedFiles, sourceNode, call.Name, call.Receiver); ok {
				emitCall(g, emitted, sourceID, targetID, conf)
			}

			for _, argName := range call.Arguments {
				if targetID, conf, ok := resolveCallTarget(g, nameIdx, importedFiles, sourceNode, argName, ""); ok {
					emitCall(g, emitted, sourceID, targetID, conf*callbackConfidenceFactor)
				}
			}

			if call.Receiver != "" && call.Receiver != "self" && call.Receiver != "this" {
				if methodID := lookupMethodOnReceiver(g, call.Name, call.Receiver, filePath); methodID != "" {
					emitCall(g, emitted, sourceID, methodID, receiverMethodConfidence)
				}
			}
		}

		for _, sym := range result.Symbols {
			if len(sym.Decorators) == 0 {
				continue
			}
			symID := graph.GenerateID(sym.Kind, filePath, symbolQualifiedName(sym))
			if g.GetNode(symID) == nil {
				continue
			}
			for _, dec := range sym.Decorators {
				decName := dec
				if idx := strings.LastIndex(dec, "."); idx >= 0 {
					decName = dec[idx+1:]
				}
				if targetID, conf, ok := resolveCallTarget(g, nameIdx, importedFiles, g.GetNode(symID), decName, ""); ok {
					emitCall(g, emitted, symID, targetID, conf)
					continue
				}
				if targetID, conf, ok := resolveCallTarget(g, nameIdx, importedFiles, g.GetNode(symID), dec, ""); ok {
					emitCall(g, emitted, symID, targetID, conf)
				}
			}
		}
	}
}

func emitCall(g *graph.KnowledgeGraph, emitted map[string]bool, sourceID, targetID string, confidence float64) {
	if sourceID == targetID {
		return
	}
	id := "calls:" + sourceID + "->" + targetID
	if emitted[id] {
		return
	}
	emitted[id] = true

	g.AddRelationship(&graph.GraphRelationship{
		ID:     id,
		Type:   graph.RelCalls,
		Source: sourceID,
		Target: targetID,
		Properties: map[string]any{
			"confidence": confidence,
		},
	})
}

// resolveCallTarget applies the five-step resolution order, returning the
// target node id, the base confidence (before any caller-side scaling), and
// whether a target was found at all.
func resolveCallTarget(
	g *graph.KnowledgeGraph,
	nameIdx nameIndex,
	importedFiles map[string]map[string][]string,
	source *graph.GraphNode,
	name string,
	receiver string,
) (string, float64, bool) {
	// Step 1: self/this.m() -> method named m in the same file.
	if receiver == "self" || receiver == "this" {
		for _, id := range nameIdx[name] {
			n := g.GetNode(id)
			if n != nil && n.Label == graph.NodeMethod && n.FilePath == source.FilePath {
				return id, exactConfidence, true
			}
		}
	}

	// Step 2: same-file exact name match.
	for _, id := range nameIdx[name] {
		n := g.GetNode(id)
		if n != nil && n.FilePath == source.FilePath {
			return id, exactConfidence, true
		}
	}

	// Step 3: import-resolved match — name's candidate lives in a file this
	// source file imports, and the import either names no specific symbols
	// (star/bare-module import) or explicitly lists name.
	if targets := importedFiles[source.FilePath]; len(targets) > 0 {
		for _, id := range nameIdx[name] {
			n := g.GetNode(id)
			if n == nil {
				continue
			}
			names, imported := targets[n.FilePath]
			if imported && (len(names) == 0 || containsName(names, name)) {
				return id, exactConfidence, true
			}
		}
	}

	// Step 4: global fuzzy match — shortest file path wins.
	candidates := nameIdx[name]
	best := ""
	bestPath := ""
	for _, id := range candidates {
		n := g.GetNode(id)
		if n == nil {
			continue
		}
		if best == "" || len(n.FilePath) < len(bestPath) || (len(n.FilePath) == len(bestPath) && n.FilePath < bestPath) {
			best = id
			bestPath = n.FilePath
		}
	}
	if best != "" {
		return best, globalFuzzyConfidence, true
	}

	return "", 0, false
}

// lookupMethodOnReceiver resolves R.m() to a method named m with class_name
// R, preferring a same-file definition, falling back to any.
func lookupMethodOnReceiver(g *graph.KnowledgeGraph, name, receiver, sourceFile string) string {
	var fallback string
	for _, n := range g.GetNodesByLabel(graph.NodeMethod) {
		if n.Name != name || n.ClassName != receiver {
			continue
		}
		if n.FilePath == sourceFile {
			return n.ID
		}
		if fallback == "" {
			fallback = n.ID
		}
	}
	return fallback
}

// buildImportedFileIndex maps each file path to the set of file paths it
// imports, along with the specific symbol names named on that import (empty
// means a star/bare-module import naming no specific symbols). Derived from
// the imports relationships built in ProcessImports.
func buildImportedFileIndex(g *graph.KnowledgeGraph) map[string]map[string][]string {
	idx := make(map[string]map[string][]string)
	for _, rel := range g.GetRelationshipsByType(graph.RelImports) {
		srcNode := g.GetNode(rel.Source)
		tgtNode := g.GetNode(rel.Target)
		if srcNode == nil || tgtNode == nil {
			continue
		}
		if idx[srcNode.FilePath] == nil {
			idx[srcNode.FilePath] = make(map[string][]string)
		}
		var names []string
		if raw, ok := rel.Properties["names"].(string); ok && raw != "" {
			names = strings.Split(raw, ",")
		}
		idx[srcNode.FilePath][tgtNode.FilePath] = names
	}
	return idx
}

// containsName reports whether name appears in names.
func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
