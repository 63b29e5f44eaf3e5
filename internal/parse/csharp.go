package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// CSharpParser parses C# source using tree-sitter.
type CSharpParser struct {
	lang *sitter.Language
}

func NewCSharpParser() *CSharpParser {
	return &CSharpParser{lang: csharp.GetLanguage()}
}

func (p *CSharpParser) Language() string { return "csharp" }

var csharpBuiltinTypes = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true, "char": true,
	"bool": true, "float": true, "double": true, "decimal": true, "void": true,
	"string": true, "object": true, "var": true, "List": true, "Dictionary": true,
	"Task": true, "IEnumerable": true,
}

var csharpIdentifierTypes = map[string]bool{"identifier": true}

func (p *CSharpParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()

	tree := parseTree(p.lang, content, filePath)
	if tree == nil {
		return result, nil
	}
	defer tree.Close()

	p.walk(tree.RootNode(), content, "", result)
	return result, nil
}

func (p *CSharpParser) walk(node *sitter.Node, content []byte, currentClass string, result *ParseResult) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "namespace_declaration":
			p.walk(child.ChildByFieldName("body"), content, currentClass, result)
		case "class_declaration", "interface_declaration", "struct_declaration", "enum_declaration":
			p.handleType(child, content, result)
		case "using_directive":
			p.extractImport(child, content, result)
		case "method_declaration", "constructor_declaration":
			p.handleMethod(child, content, currentClass, result)
		default:
			p.descendCalls(child, content, result)
		}
	}
}

func (p *CSharpParser) handleType(node *sitter.Node, content []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeClass
	switch node.Type() {
	case "interface_declaration":
		kind = graph.NodeInterface
	case "enum_declaration":
		kind = graph.NodeEnum
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      name,
		Kind:      kind,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Content:   nodeText(node, content),
		Signature: strings.TrimSuffix(node.Type(), "_declaration") + " " + name,
	})

	if bases := node.ChildByFieldName("bases"); bases != nil {
		first := true
		walk(bases, func(n *sitter.Node) bool {
			if n.Type() != "identifier" && n.Type() != "generic_name" {
				return true
			}
			kind := HeritageImplements
			if first && node.Type() != "interface_declaration" {
				// C# has no explicit extends/implements split; by convention
				// the first base-list entry is the superclass when one
				// exists, interfaces follow.
				kind = HeritageExtends
			}
			first = false
			result.Heritage = append(result.Heritage, Heritage{
				ClassName: name, Kind: kind, ParentName: nodeText(n, content),
			})
			return false
		})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, content, name, result)
	}
}

func (p *CSharpParser) handleMethod(node *sitter.Node, content []byte, className string, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeFunction
	if className != "" {
		kind = graph.NodeMethod
	}

	sig := name
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig += nodeText(params, content)
	}
	if ret := node.ChildByFieldName("returns"); ret != nil {
		sig = nodeText(ret, content) + " " + sig
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      name,
		Kind:      kind,
		ClassName: className,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Content:   nodeText(node, content),
		Signature: sig,
	})

	p.extractTypeRefs(node, content, result)
	p.descendCalls(node.ChildByFieldName("body"), content, result)
}

func (p *CSharpParser) extractTypeRefs(node *sitter.Node, content []byte, result *ParseResult) {
	if ret := node.ChildByFieldName("returns"); ret != nil {
		if name := firstIdentifier(ret, content, csharpIdentifierTypes); name != "" && !csharpBuiltinTypes[name] {
			result.TypeRefs = append(result.TypeRefs, TypeReference{
				Name: name, Kind: TypeRefReturn, Line: lineOf(node),
			})
		}
	}

	params := node.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		param := params.Child(i)
		if param == nil || param.Type() != "parameter" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		nameNode := param.ChildByFieldName("name")
		if typeNode == nil {
			continue
		}
		name := firstIdentifier(typeNode, content, csharpIdentifierTypes)
		if name == "" || csharpBuiltinTypes[name] {
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

func (p *CSharpParser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	text := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(nodeText(node, content), "using")), ";")
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	result.Imports = append(result.Imports, ImportStatement{Module: text, Line: lineOf(node)})
}

func (p *CSharpParser) descendCalls(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "struct_declaration", "enum_declaration",
			"method_declaration", "constructor_declaration", "lambda_expression":
			return n == node
		case "invocation_expression":
			p.extractCall(n, content, result)
		case "object_creation_expression":
			if t := n.ChildByFieldName("type"); t != nil {
				result.Calls = append(result.Calls, CallSite{
					Name: nodeText(t, content), Line: lineOf(n),
				})
			}
		}
		return true
	})
}

func (p *CSharpParser) extractCall(n *sitter.Node, content []byte, result *ParseResult) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var name, receiver string
	switch fn.Type() {
	case "identifier":
		name = nodeText(fn, content)
	case "member_access_expression":
		obj := fn.ChildByFieldName("expression")
		nm := fn.ChildByFieldName("name")
		name = nodeText(nm, content)
		receiver = rootIdentifierCSharp(obj, content)
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

func rootIdentifierCSharp(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	for n.Type() == "member_access_expression" {
		obj := n.ChildByFieldName("expression")
		if obj == nil {
			break
		}
		n = obj
	}
	return nodeText(n, content)
}
