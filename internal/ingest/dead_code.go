package ingest

import (
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

var deadCodeSymbolLabels = []graph.NodeLabel{graph.NodeFunction, graph.NodeMethod, graph.NodeClass}

var constructorNames = map[string]bool{"__init__": true, "__new__": true}

var nonFrameworkDecorators = map[string]bool{
	"functools.wraps":           true,
	"functools.lru_cache":       true,
	"functools.cached_property": true,
	"functools.cache":           true,
}

var frameworkDecoratorNames = map[string]bool{
	"task": true, "shared_task": true, "periodic_task": true, "job": true,
	"receiver": true, "on_event": true, "handler": true,
	"validator": true, "field_validator": true, "root_validator": true, "model_validator": true,
	"contextmanager": true, "asynccontextmanager": true,
	"fixture": true,
	"route": true, "endpoint": true, "command": true,
	"hybrid_property": true,
}

var typingStubDecorators = map[string]bool{
	"overload": true, "typing.overload": true,
	"abstractmethod": true, "abc.abstractmethod": true,
}

var enumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
}

// ProcessDeadCode flags unreachable symbols and then clears false positives
// via the override, protocol-conformance, and protocol-stub passes. Returns
// the net number of symbols left flagged dead.
func ProcessDeadCode(g *graph.KnowledgeGraph) int {
	deadCount := 0

	for _, label := range deadCodeSymbolLabels {
		for _, node := range g.GetNodesByLabel(label) {
			if isDeadCodeExempt(node) {
				continue
			}
			if g.HasIncoming(node.ID, graph.RelCalls) {
				continue
			}
			if isTypeReferenced(g, node, label) {
				continue
			}
			if hasFrameworkDecorator(node) {
				continue
			}
			if hasPropertyDecorator(node) {
				continue
			}
			if hasTypingStubDecorator(node) {
				continue
			}
			if isEnumClass(node, label) {
				continue
			}

			node.IsDead = true
			deadCount++
		}
	}

	deadCount -= clearOverrideFalsePositives(g)
	deadCount -= clearProtocolConformanceFalsePositives(g)
	deadCount -= clearProtocolStubFalsePositives(g)

	return deadCount
}

// isDeadCodeExempt reports whether a symbol is exempt from flagging
// regardless of call reachability: entry points, exports, constructors,
// test functions/classes/files, dunders, and public __init__.py symbols.
func isDeadCodeExempt(node *graph.GraphNode) bool {
	return node.IsEntryPoint ||
		node.IsExported ||
		constructorNames[node.Name] ||
		strings.HasPrefix(node.Name, "test_") ||
		isTestClassName(node.Name) ||
		isTestFilePath(node.FilePath) ||
		isDunderName(node.Name) ||
		isPythonPublicAPI(node.Name, node.FilePath)
}

func isTestClassName(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "Test") && name[4] >= 'A' && name[4] <= 'Z'
}

func isTestFilePath(path string) bool {
	return strings.Contains(path, "/tests/") ||
		strings.Contains(path, "/test_") ||
		strings.HasSuffix(path, "conftest.py")
}

func isDunderName(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}

func isPythonPublicAPI(name, filePath string) bool {
	return strings.HasSuffix(filePath, "__init__.py") && !strings.HasPrefix(name, "_")
}

// isTypeReferenced reports whether a class is referenced via uses_type
// edges (enums, dataclasses, Protocol classes passed as annotations).
func isTypeReferenced(g *graph.KnowledgeGraph, node *graph.GraphNode, label graph.NodeLabel) bool {
	if label != graph.NodeClass {
		return false
	}
	return g.HasIncoming(node.ID, graph.RelUsesType)
}

func decoratorsOf(node *graph.GraphNode) []string {
	if node.Properties != nil {
		if raw, ok := node.Properties["decorators"].([]string); ok {
			return raw
		}
	}
	return node.Decorators
}

func hasFrameworkDecorator(node *graph.GraphNode) bool {
	for _, dec := range decoratorsOf(node) {
		if frameworkDecoratorNames[dec] {
			return true
		}
		if strings.Contains(dec, ".") && !nonFrameworkDecorators[dec] {
			return true
		}
	}
	return false
}

func hasPropertyDecorator(node *graph.GraphNode) bool {
	for _, dec := range decoratorsOf(node) {
		if dec == "property" {
			return true
		}
	}
	return false
}

func hasTypingStubDecorator(node *graph.GraphNode) bool {
	for _, dec := range decoratorsOf(node) {
		if typingStubDecorators[dec] {
			return true
		}
	}
	return false
}

func isEnumClass(node *graph.GraphNode, label graph.NodeLabel) bool {
	if label != graph.NodeClass {
		return false
	}
	bases, _ := node.Properties["bases"].([]string)
	for _, base := range bases {
		if enumBases[base] {
			return true
		}
	}
	return false
}

// clearOverrideFalsePositives un-flags methods whose name also names a
// non-dead method on any parent of their class, via EXTENDS edges.
func clearOverrideFalsePositives(g *graph.KnowledgeGraph) int {
	aliveMethodsByClass := make(map[string]map[string]bool)
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if !method.IsDead && method.ClassName != "" {
			if aliveMethodsByClass[method.ClassName] == nil {
				aliveMethodsByClass[method.ClassName] = make(map[string]bool)
			}
			aliveMethodsByClass[method.ClassName][method.Name] = true
		}
	}

	childToParents := make(map[string][]string)
	for _, rel := range g.GetRelationshipsByType(graph.RelExtends) {
		childNode := g.GetNode(rel.Source)
		parentNode := g.GetNode(rel.Target)
		if childNode != nil && parentNode != nil {
			childToParents[childNode.Name] = append(childToParents[childNode.Name], parentNode.Name)
		}
	}

	cleared := 0
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if !method.IsDead || method.ClassName == "" {
			continue
		}
		for _, parentName := range childToParents[method.ClassName] {
			if aliveMethodsByClass[parentName][method.Name] {
				method.IsDead = false
				cleared++
				break
			}
		}
	}

	return cleared
}

// clearProtocolConformanceFalsePositives un-flags methods on classes that
// structurally implement every non-dunder method of some is_protocol class,
// even without an explicit EXTENDS/IMPLEMENTS edge.
func clearProtocolConformanceFalsePositives(g *graph.KnowledgeGraph) int {
	classMethods := make(map[string]map[string]bool)
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if method.ClassName == "" {
			continue
		}
		if classMethods[method.ClassName] == nil {
			classMethods[method.ClassName] = make(map[string]bool)
		}
		classMethods[method.ClassName][method.Name] = true
	}

	protocolMethods := make(map[string]map[string]bool)
	for _, cls := range g.GetNodesByLabel(graph.NodeClass) {
		if cls.Properties == nil || cls.Properties["is_protocol"] != true {
			continue
		}
		methods := make(map[string]bool)
		for name := range classMethods[cls.Name] {
			if !isDunderName(name) {
				methods[name] = true
			}
		}
		if len(methods) > 0 {
			protocolMethods[cls.Name] = methods
		}
	}
	if len(protocolMethods) == 0 {
		return 0
	}

	clearable := make(map[string]map[string]bool)
	for protoName, required := range protocolMethods {
		for clsName, methods := range classMethods {
			if clsName == protoName {
				continue
			}
			if isSuperset(methods, required) {
				if clearable[clsName] == nil {
					clearable[clsName] = make(map[string]bool)
				}
				for name := range required {
					clearable[clsName][name] = true
				}
			}
		}
	}
	if len(clearable) == 0 {
		return 0
	}

	cleared := 0
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if !method.IsDead || method.ClassName == "" {
			continue
		}
		if clearable[method.ClassName][method.Name] {
			method.IsDead = false
			cleared++
		}
	}

	return cleared
}

func isSuperset(set, subset map[string]bool) bool {
	for name := range subset {
		if !set[name] {
			return false
		}
	}
	return true
}

// clearProtocolStubFalsePositives un-flags every method on a class flagged
// is_protocol; protocol methods are contracts, never called directly.
func clearProtocolStubFalsePositives(g *graph.KnowledgeGraph) int {
	protocolClassNames := make(map[string]bool)
	for _, cls := range g.GetNodesByLabel(graph.NodeClass) {
		if cls.Properties != nil && cls.Properties["is_protocol"] == true {
			protocolClassNames[cls.Name] = true
		}
	}
	if len(protocolClassNames) == 0 {
		return 0
	}

	cleared := 0
	for _, method := range g.GetNodesByLabel(graph.NodeMethod) {
		if !method.IsDead || method.ClassName == "" {
			continue
		}
		if protocolClassNames[method.ClassName] {
			method.IsDead = false
			cleared++
		}
	}

	return cleared
}
