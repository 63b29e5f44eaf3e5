package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// PythonParser parses Python source using tree-sitter.
type PythonParser struct {
	lang *sitter.Language
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{lang: python.GetLanguage()}
}

func (p *PythonParser) Language() string { return "python" }

var pythonBuiltinTypes = map[string]bool{
	"int": true, "str": true, "float": true, "bool": true, "bytes": true,
	"list": true, "dict": true, "set": true, "tuple": true, "None": true,
	"object": true, "type": true, "frozenset": true, "complex": true,
}

var pythonIdentifierTypes = map[string]bool{"identifier": true}

// protocolMarkers is the structural-typing marker list: a superclass by
// this name flags the class as conformance-checked rather than
// inheritance-checked by the dead-code suppression pass.
var protocolMarkers = map[string]bool{"Protocol": true, "ABC": true, "ABCMeta": true}

func (p *PythonParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()

	tree := parseTree(p.lang, content, filePath)
	if tree == nil {
		return result, nil
	}
	defer tree.Close()

	p.walkBody(tree.RootNode(), content, "", result)
	applyExports(result)
	return result, nil
}

// walkBody walks a module/class body, collecting symbols at this lexical
// level. currentClass is non-empty when walking a class body.
func (p *PythonParser) walkBody(node *sitter.Node, content []byte, currentClass string, result *ParseResult) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "decorated_definition":
			decs := p.collectDecorators(child, content)
			if def := p.innerDefinition(child); def != nil {
				p.handleDefinition(def, content, currentClass, decs, result)
			}
		case "function_definition", "class_definition":
			p.handleDefinition(child, content, currentClass, nil, result)
		case "import_statement", "import_from_statement":
			p.extractImport(child, content, result)
		default:
			p.extractAllExport(child, content, result)
			p.walkExpressionsForCalls(child, content, result)
		}
	}
}

func (p *PythonParser) innerDefinition(decorated *sitter.Node) *sitter.Node {
	for i := 0; i < int(decorated.ChildCount()); i++ {
		c := decorated.Child(i)
		if c != nil && (c.Type() == "function_definition" || c.Type() == "class_definition") {
			return c
		}
	}
	return nil
}

func (p *PythonParser) collectDecorators(decorated *sitter.Node, content []byte) []string {
	var decs []string
	for i := 0; i < int(decorated.ChildCount()); i++ {
		c := decorated.Child(i)
		if c == nil || c.Type() != "decorator" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			e := c.Child(j)
			if e == nil || !e.IsNamed() {
				continue
			}
			decs = append(decs, decoratorName(e, content))
			break
		}
	}
	return decs
}

// decoratorName captures at syntactic precision: bare identifier, dotted
// attribute chain, or call expression (the dotted function name only).
func decoratorName(e *sitter.Node, content []byte) string {
	if e.Type() == "call" {
		if fn := e.ChildByFieldName("function"); fn != nil {
			return decoratorName(fn, content)
		}
	}
	return nodeText(e, content)
}

func (p *PythonParser) handleDefinition(node *sitter.Node, content []byte, currentClass string, decorators []string, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	switch node.Type() {
	case "function_definition":
		kind := graph.NodeFunction
		className := ""
		if currentClass != "" {
			kind = graph.NodeMethod
			className = currentClass
		}

		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:       name,
			Kind:       kind,
			ClassName:  className,
			StartLine:  lineOf(node),
			EndLine:    endLineOf(node),
			Content:    nodeText(node, content),
			Signature:  p.buildSignature(node, content, name),
			IsExported: !strings.HasPrefix(name, "_"),
			Decorators: decorators,
		})

		p.extractTypeRefsFromFunction(node, content, result)

		if body := node.ChildByFieldName("body"); body != nil {
			p.walkExpressionsForCalls(body, content, result)
		}

	case "class_definition":
		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:       name,
			Kind:       graph.NodeClass,
			StartLine:  lineOf(node),
			EndLine:    endLineOf(node),
			Content:    nodeText(node, content),
			Signature:  "class " + name,
			IsExported: !strings.HasPrefix(name, "_"),
			Decorators: decorators,
		})

		if bases := node.ChildByFieldName("superclasses"); bases != nil {
			for i := 0; i < int(bases.ChildCount()); i++ {
				b := bases.Child(i)
				if b == nil || !b.IsNamed() {
					continue
				}
				baseName := nodeText(b, content)
				kind := HeritageExtends
				if protocolMarkers[baseName] {
					kind = HeritageImplements
				}
				result.Heritage = append(result.Heritage, Heritage{
					ClassName: name, Kind: kind, ParentName: baseName,
				})
			}
		}

		if body := node.ChildByFieldName("body"); body != nil {
			p.walkBody(body, content, name, result)
		}
	}
}

func (p *PythonParser) buildSignature(fn *sitter.Node, content []byte, name string) string {
	paramsText := ""
	if params := fn.ChildByFieldName("parameters"); params != nil {
		paramsText = nodeText(params, content)
	}
	sig := "def " + name + paramsText
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + nodeText(ret, content)
	}
	return sig
}

func (p *PythonParser) extractTypeRefsFromFunction(fn *sitter.Node, content []byte, result *ParseResult) {
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		if name := firstIdentifier(ret, content, pythonIdentifierTypes); name != "" && !pythonBuiltinTypes[name] {
			result.TypeRefs = append(result.TypeRefs, TypeReference{
				Name: name, Kind: TypeRefReturn, Line: lineOf(fn),
			})
		}
	}

	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		param := params.Child(i)
		if param == nil {
			continue
		}

		var nameNode, typeNode *sitter.Node
		switch param.Type() {
		case "typed_parameter":
			typeNode = param.ChildByFieldName("type")
			for j := 0; j < int(param.ChildCount()); j++ {
				c := param.Child(j)
				if c != nil && c.Type() == "identifier" && nameNode == nil {
					nameNode = c
				}
			}
		case "typed_default_parameter":
			nameNode = param.ChildByFieldName("name")
			typeNode = param.ChildByFieldName("type")
		default:
			continue
		}
		if typeNode == nil {
			continue
		}

		name := firstIdentifier(typeNode, content, pythonIdentifierTypes)
		if name == "" || pythonBuiltinTypes[name] {
			continue
		}
		paramName := ""
		if nameNode != nil {
			paramName = nodeText(nameNode, content)
		}
		result.TypeRefs = append(result.TypeRefs, TypeReference{
			Name: name, Kind: TypeRefParam, Line: lineOf(param), ParamName: paramName,
		})
	}
}

func (p *PythonParser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	line := lineOf(node)

	if node.Type() == "import_statement" {
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c == nil || !c.IsNamed() {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				result.Imports = append(result.Imports, ImportStatement{
					Module: nodeText(c, content), Line: line,
				})
			case "aliased_import":
				imp := ImportStatement{Line: line}
				if n := c.ChildByFieldName("name"); n != nil {
					imp.Module = nodeText(n, content)
				}
				if a := c.ChildByFieldName("alias"); a != nil {
					imp.Alias = nodeText(a, content)
				}
				result.Imports = append(result.Imports, imp)
			}
		}
		return
	}

	// import_from_statement
	moduleNode := node.ChildByFieldName("module_name")
	module := ""
	isRelative := false
	if moduleNode != nil {
		if moduleNode.Type() == "relative_import" {
			dots := 0
			var dotted *sitter.Node
			for i := 0; i < int(moduleNode.ChildCount()); i++ {
				c := moduleNode.Child(i)
				if c == nil {
					continue
				}
				if c.Type() == "import_prefix" {
					dots = len(nodeText(c, content))
				} else if c.Type() == "dotted_name" {
					dotted = c
				}
			}
			isRelative = true
			module = strings.Repeat(".", dots)
			if dotted != nil {
				module += nodeText(dotted, content)
			}
		} else {
			module = nodeText(moduleNode, content)
			isRelative = strings.HasPrefix(module, ".")
		}
	}

	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil || c == moduleNode {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			names = append(names, nodeText(c, content))
		case "aliased_import":
			if n := c.ChildByFieldName("name"); n != nil {
				names = append(names, nodeText(n, content))
			}
		}
	}

	result.Imports = append(result.Imports, ImportStatement{
		Module: module, Names: names, IsRelative: isRelative, Line: line,
	})
}

// walkExpressionsForCalls finds call/raise/except expressions under node
// without descending into a nested function/class definition — those are
// handled by their own handleDefinition invocation from walkBody.
func (p *PythonParser) walkExpressionsForCalls(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "function_definition" || child.Type() == "class_definition" ||
			child.Type() == "decorated_definition" {
			continue
		}
		p.scanForCalls(child, content, result)
	}
}

func (p *PythonParser) scanForCalls(node *sitter.Node, content []byte, result *ParseResult) {
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_definition", "class_definition", "decorated_definition":
			return n == node
		case "call":
			p.extractCall(n, content, result)
		case "raise_statement", "except_clause":
			p.extractRaiseOrExcept(n, content, result)
		}
		return true
	})
}

func (p *PythonParser) extractCall(n *sitter.Node, content []byte, result *ParseResult) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var name, receiver string
	switch fn.Type() {
	case "identifier":
		name = nodeText(fn, content)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		name = nodeText(attr, content)
		receiver = rootIdentifier(obj, content)
	default:
		name = nodeText(fn, content)
	}
	if name == "" {
		return
	}

	var args []string
	if argList := n.ChildByFieldName("arguments"); argList != nil {
		for i := 0; i < int(argList.ChildCount()); i++ {
			a := argList.Child(i)
			if a != nil && a.Type() == "identifier" {
				args = append(args, nodeText(a, content))
			}
		}
	}

	result.Calls = append(result.Calls, CallSite{
		Name: name, Receiver: receiver, Line: lineOf(n), Arguments: args,
	})
}

func (p *PythonParser) extractRaiseOrExcept(n *sitter.Node, content []byte, result *ParseResult) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.IsNamed() {
			continue
		}
		switch c.Type() {
		case "call":
			if fn := c.ChildByFieldName("function"); fn != nil {
				result.Calls = append(result.Calls, CallSite{
					Name: rootIdentifier(fn, content), Line: lineOf(n),
				})
			}
			return
		case "identifier", "attribute":
			name := nodeText(c, content)
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			result.Calls = append(result.Calls, CallSite{Name: name, Line: lineOf(n)})
			return
		}
	}
}

func (p *PythonParser) extractAllExport(node *sitter.Node, content []byte, result *ParseResult) {
	if node.Type() != "expression_statement" {
		return
	}
	text := nodeText(node, content)
	if !strings.HasPrefix(strings.TrimSpace(text), "__all__") {
		return
	}
	walk(node, func(n *sitter.Node) bool {
		if n.Type() == "string" {
			s := strings.Trim(nodeText(n, content), "'\"")
			if s != "" {
				result.Exports = append(result.Exports, s)
			}
		}
		return true
	})
}

// rootIdentifier returns the textual root of a (possibly dotted/call)
// expression: "self"/"this" for instance calls, otherwise the leftmost
// identifier in the chain.
func rootIdentifier(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	for n.Type() == "attribute" {
		obj := n.ChildByFieldName("object")
		if obj == nil {
			break
		}
		n = obj
	}
	if n.Type() == "call" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			return rootIdentifier(fn, content)
		}
	}
	return nodeText(n, content)
}
