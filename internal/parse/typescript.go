package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// TypeScriptParser parses TypeScript/TSX or plain JavaScript source using
// tree-sitter, depending on isTypeScript.
type TypeScriptParser struct {
	lang         *sitter.Language
	isTypeScript bool
}

// NewTypeScriptParser creates a parser for TypeScript (isTypeScript true) or
// JavaScript (isTypeScript false) source.
func NewTypeScriptParser(isTypeScript bool) *TypeScriptParser {
	if isTypeScript {
		return &TypeScriptParser{lang: typescript.GetLanguage(), isTypeScript: true}
	}
	return &TypeScriptParser{lang: javascript.GetLanguage(), isTypeScript: false}
}

func (p *TypeScriptParser) Language() string {
	if p.isTypeScript {
		return "typescript"
	}
	return "javascript"
}

var jsBuiltinTypes = map[string]bool{
	"string": true, "number": true, "boolean": true, "any": true, "void": true,
	"unknown": true, "never": true, "object": true, "undefined": true, "null": true,
	"Array": true, "Promise": true, "Map": true, "Set": true, "Record": true,
}

var jsIdentifierTypes = map[string]bool{"type_identifier": true, "identifier": true}

func (p *TypeScriptParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()

	tree := parseTree(p.lang, content, filePath)
	if tree == nil {
		return result, nil
	}
	defer tree.Close()

	p.walkBody(tree.RootNode(), content, "", false, result)
	applyExports(result)
	return result, nil
}

// walkBody walks a program/class body. currentClass is non-empty inside a
// class_body. forceExported flags every declaration walked at this level as
// exported; `export ...` statements are handled by handleExport instead.
func (p *TypeScriptParser) walkBody(node *sitter.Node, content []byte, currentClass string, forceExported bool, result *ParseResult) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "export_statement":
			p.handleExport(child, content, currentClass, result)
		case "function_declaration", "generator_function_declaration":
			p.handleFunction(child, content, "", forceExported, result)
			p.descendCalls(child.ChildByFieldName("body"), content, result)
		case "class_declaration", "abstract_class_declaration":
			p.handleClass(child, content, forceExported, result)
		case "interface_declaration":
			p.handleInterface(child, content, forceExported, result)
		case "type_alias_declaration":
			p.handleTypeAlias(child, content, forceExported, result)
		case "lexical_declaration", "variable_declaration":
			p.handleVariableDeclaration(child, content, forceExported, result)
		case "import_statement":
			p.extractImport(child, content, result)
		case "method_definition", "method_signature", "abstract_method_signature":
			p.handleMethod(child, content, currentClass, result)
		default:
			p.descendCalls(child, content, result)
		}
	}
}

func (p *TypeScriptParser) handleExport(node *sitter.Node, content []byte, currentClass string, result *ParseResult) {
	// export default X / export { a, b } / export const ...
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil || !c.IsNamed() {
			continue
		}
		switch c.Type() {
		case "function_declaration", "generator_function_declaration":
			p.handleFunction(c, content, "", true, result)
			p.descendCalls(c.ChildByFieldName("body"), content, result)
		case "class_declaration", "abstract_class_declaration":
			p.handleClass(c, content, true, result)
		case "interface_declaration":
			p.handleInterface(c, content, true, result)
		case "type_alias_declaration":
			p.handleTypeAlias(c, content, true, result)
		case "lexical_declaration", "variable_declaration":
			p.handleVariableDeclaration(c, content, true, result)
		case "identifier":
			result.Exports = append(result.Exports, nodeText(c, content))
		case "export_clause":
			for j := 0; j < int(c.ChildCount()); j++ {
				spec := c.Child(j)
				if spec != nil && spec.Type() == "export_specifier" {
					if n := spec.ChildByFieldName("name"); n != nil {
						result.Exports = append(result.Exports, nodeText(n, content))
					}
				}
			}
		}
	}
}

func (p *TypeScriptParser) handleFunction(node *sitter.Node, content []byte, className string, exported bool, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeFunction
	if className != "" {
		kind = graph.NodeMethod
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       kind,
		ClassName:  className,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  p.buildSignature(node, content, name),
		IsExported: exported,
	})

	p.extractTypeRefs(node, content, result)
}

func (p *TypeScriptParser) handleMethod(node *sitter.Node, content []byte, className string, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	if name == "constructor" {
		p.extractTypeRefs(node, content, result)
		p.descendCalls(node.ChildByFieldName("body"), content, result)
		return
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      name,
		Kind:      graph.NodeMethod,
		ClassName: className,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Content:   nodeText(node, content),
		Signature: p.buildSignature(node, content, name),
	})

	p.extractTypeRefs(node, content, result)
	p.descendCalls(node.ChildByFieldName("body"), content, result)
}

func (p *TypeScriptParser) buildSignature(fn *sitter.Node, content []byte, name string) string {
	params := ""
	if pn := fn.ChildByFieldName("parameters"); pn != nil {
		params = nodeText(pn, content)
	}
	sig := name + params
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		sig += nodeText(ret, content)
	}
	return sig
}

func (p *TypeScriptParser) extractTypeRefs(fn *sitter.Node, content []byte, result *ParseResult) {
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		if name := firstIdentifier(ret, content, jsIdentifierTypes); name != "" && !jsBuiltinTypes[name] {
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
		if param == nil || !param.IsNamed() {
			continue
		}
		var nameNode, typeNode *sitter.Node
		switch param.Type() {
		case "required_parameter", "optional_parameter":
			nameNode = param.ChildByFieldName("pattern")
			typeNode = param.ChildByFieldName("type")
		case "identifier":
			nameNode = param
		default:
			continue
		}
		if typeNode == nil {
			continue
		}
		name := firstIdentifier(typeNode, content, jsIdentifierTypes)
		if name == "" || jsBuiltinTypes[name] {
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

func (p *TypeScriptParser) handleClass(node *sitter.Node, content []byte, exported bool, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeClass,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  "class " + name,
		IsExported: exported,
	})

	p.extractClassHeritage(node, content, name, result)

	if body := node.ChildByFieldName("body"); body != nil {
		p.walkBody(body, content, name, false, result)
	}
}

func (p *TypeScriptParser) extractClassHeritage(node *sitter.Node, content []byte, name string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "class_heritage":
			p.extractClassHeritage(c, content, name, result)
		case "extends_clause":
			for j := 0; j < int(c.ChildCount()); j++ {
				v := c.Child(j)
				if v != nil && v.IsNamed() {
					result.Heritage = append(result.Heritage, Heritage{
						ClassName: name, Kind: HeritageExtends,
						ParentName: rootIdentifierJS(v, content),
					})
				}
			}
		case "implements_clause":
			for j := 0; j < int(c.ChildCount()); j++ {
				v := c.Child(j)
				if v != nil && v.IsNamed() {
					result.Heritage = append(result.Heritage, Heritage{
						ClassName: name, Kind: HeritageImplements,
						ParentName: nodeText(v, content),
					})
				}
			}
		}
	}
}

func rootIdentifierJS(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "call_expression" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			return rootIdentifierJS(fn, content)
		}
	}
	return nodeText(n, content)
}

func (p *TypeScriptParser) handleInterface(node *sitter.Node, content []byte, exported bool, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeInterface,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  "interface " + name,
		IsExported: exported,
	})

	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c != nil && c.Type() == "extends_type_clause" {
			for j := 0; j < int(c.ChildCount()); j++ {
				v := c.Child(j)
				if v != nil && v.IsNamed() {
					result.Heritage = append(result.Heritage, Heritage{
						ClassName: name, Kind: HeritageExtends, ParentName: nodeText(v, content),
					})
				}
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			if member == nil {
				continue
			}
			switch member.Type() {
			case "method_signature":
				p.handleMethod(member, content, name, result)
			case "property_signature":
				if t := member.ChildByFieldName("type"); t != nil {
					if tn := firstIdentifier(t, content, jsIdentifierTypes); tn != "" && !jsBuiltinTypes[tn] {
						result.TypeRefs = append(result.TypeRefs, TypeReference{
							Name: tn, Kind: TypeRefVariable, Line: lineOf(member),
						})
					}
				}
			}
		}
	}
}

func (p *TypeScriptParser) handleTypeAlias(node *sitter.Node, content []byte, exported bool, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeTypeAlias,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  "type " + name,
		IsExported: exported,
	})
}

func (p *TypeScriptParser) handleVariableDeclaration(node *sitter.Node, content []byte, exported bool, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		valueNode := decl.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		if valueNode.Type() != "arrow_function" && valueNode.Type() != "function_expression" {
			p.descendCalls(valueNode, content, result)
			continue
		}

		name := nodeText(nameNode, content)
		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:       name,
			Kind:       graph.NodeFunction,
			StartLine:  lineOf(decl),
			EndLine:    endLineOf(valueNode),
			Content:    nodeText(valueNode, content),
			Signature:  p.buildSignature(valueNode, content, name),
			IsExported: exported,
		})
		p.extractTypeRefs(valueNode, content, result)
		p.descendCalls(valueNode.ChildByFieldName("body"), content, result)
	}
}

func (p *TypeScriptParser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	line := lineOf(node)
	var source *sitter.Node
	var clause *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "string":
			source = c
		case "import_clause":
			clause = c
		}
	}

	module := ""
	if source != nil {
		module = strings.Trim(nodeText(source, content), `'"`)
	}

	var names []string
	var alias string
	if clause != nil {
		for i := 0; i < int(clause.ChildCount()); i++ {
			c := clause.Child(i)
			if c == nil {
				continue
			}
			switch c.Type() {
			case "identifier":
				names = append(names, nodeText(c, content))
			case "namespace_import":
				for j := 0; j < int(c.ChildCount()); j++ {
					id := c.Child(j)
					if id != nil && id.Type() == "identifier" {
						alias = nodeText(id, content)
					}
				}
			case "named_imports":
				for j := 0; j < int(c.ChildCount()); j++ {
					spec := c.Child(j)
					if spec == nil || spec.Type() != "import_specifier" {
						continue
					}
					if n := spec.ChildByFieldName("name"); n != nil {
						names = append(names, nodeText(n, content))
					}
				}
			}
		}
	}

	result.Imports = append(result.Imports, ImportStatement{
		Module: module, Names: names, Alias: alias,
		IsRelative: strings.HasPrefix(module, "."), Line: line,
	})
}

// descendCalls finds call_expression nodes under node without crossing into
// a nested function/class/method definition (handled by its own caller).
func (p *TypeScriptParser) descendCalls(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration", "generator_function_declaration", "class_declaration",
			"abstract_class_declaration", "method_definition", "arrow_function", "function_expression":
			return n == node
		case "call_expression":
			p.extractCall(n, content, result)
		case "new_expression":
			if ctor := n.ChildByFieldName("constructor"); ctor != nil {
				result.Calls = append(result.Calls, CallSite{
					Name: rootIdentifierJS(ctor, content), Line: lineOf(n),
				})
			}
		}
		return true
	})
}

func (p *TypeScriptParser) extractCall(n *sitter.Node, content []byte, result *ParseResult) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var name, receiver string
	switch fn.Type() {
	case "identifier":
		name = nodeText(fn, content)
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		prop := fn.ChildByFieldName("property")
		name = nodeText(prop, content)
		receiver = rootIdentifierJS(obj, content)
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
