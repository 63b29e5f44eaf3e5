package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// JavaParser parses Java source using tree-sitter.
type JavaParser struct {
	lang *sitter.Language
}

func NewJavaParser() *JavaParser {
	return &JavaParser{lang: java.GetLanguage()}
}

func (p *JavaParser) Language() string { return "java" }

var javaBuiltinTypes = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true, "char": true,
	"boolean": true, "float": true, "double": true, "void": true, "String": true,
	"Object": true, "List": true, "Map": true, "Set": true, "Optional": true,
}

var javaIdentifierTypes = map[string]bool{"type_identifier": true, "identifier": true}

func (p *JavaParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()

	tree := parseTree(p.lang, content, filePath)
	if tree == nil {
		return result, nil
	}
	defer tree.Close()

	p.walk(tree.RootNode(), content, "", result)
	return result, nil
}

func (p *JavaParser) walk(node *sitter.Node, content []byte, currentClass string, result *ParseResult) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			p.handleType(child, content, result)
		case "import_declaration":
			p.extractImport(child, content, result)
		case "method_declaration", "constructor_declaration":
			p.handleMethod(child, content, currentClass, result)
		default:
			p.descendCalls(child, content, result)
		}
	}
}

func (p *JavaParser) handleType(node *sitter.Node, content []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeClass
	if node.Type() == "interface_declaration" {
		kind = graph.NodeInterface
	} else if node.Type() == "enum_declaration" {
		kind = graph.NodeEnum
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       kind,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  node.Type() + " " + name,
		IsExported: isJavaPublic(node, content),
	})

	if sc := node.ChildByFieldName("superclass"); sc != nil {
		if n := firstIdentifier(sc, content, javaIdentifierTypes); n != "" {
			result.Heritage = append(result.Heritage, Heritage{
				ClassName: name, Kind: HeritageExtends, ParentName: n,
			})
		}
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		walk(ifaces, func(n *sitter.Node) bool {
			if n.Type() == "type_identifier" {
				result.Heritage = append(result.Heritage, Heritage{
					ClassName: name, Kind: HeritageImplements, ParentName: nodeText(n, content),
				})
			}
			return true
		})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, content, name, result)
	}
}

func isJavaPublic(node *sitter.Node, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c != nil && c.Type() == "modifiers" {
			return strings.Contains(nodeText(c, content), "public")
		}
	}
	return false
}

func (p *JavaParser) handleMethod(node *sitter.Node, content []byte, className string, result *ParseResult) {
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
	if ret := node.ChildByFieldName("type"); ret != nil {
		sig = nodeText(ret, content) + " " + sig
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       kind,
		ClassName:  className,
		StartLine:  lineOf(node),
		EndLine:    endLineOf(node),
		Content:    nodeText(node, content),
		Signature:  sig,
		IsExported: isJavaPublic(node, content),
	})

	p.extractTypeRefs(node, content, result)
	p.descendCalls(node.ChildByFieldName("body"), content, result)
}

func (p *JavaParser) extractTypeRefs(node *sitter.Node, content []byte, result *ParseResult) {
	if ret := node.ChildByFieldName("type"); ret != nil {
		if name := firstIdentifier(ret, content, javaIdentifierTypes); name != "" && !javaBuiltinTypes[name] {
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
		if param == nil || param.Type() != "formal_parameter" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		nameNode := param.ChildByFieldName("name")
		if typeNode == nil {
			continue
		}
		name := firstIdentifier(typeNode, content, javaIdentifierTypes)
		if name == "" || javaBuiltinTypes[name] {
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

func (p *JavaParser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	text := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(nodeText(node, content), "import")), ";")
	text = strings.TrimSpace(strings.TrimPrefix(text, "static"))
	text = strings.TrimSpace(text)

	names := []string(nil)
	module := text
	if idx := strings.LastIndex(text, "."); idx >= 0 {
		last := text[idx+1:]
		if last == "*" {
			module = text[:idx]
		} else {
			names = []string{last}
		}
	}

	result.Imports = append(result.Imports, ImportStatement{
		Module: module, Names: names, Line: lineOf(node),
	})
}

func (p *JavaParser) descendCalls(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration",
			"method_declaration", "constructor_declaration", "lambda_expression":
			return n == node
		case "method_invocation":
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

func (p *JavaParser) extractCall(n *sitter.Node, content []byte, result *ParseResult) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	receiver := ""
	if obj := n.ChildByFieldName("object"); obj != nil {
		receiver = nodeText(obj, content)
		if idx := strings.LastIndex(receiver, "."); idx >= 0 {
			receiver = receiver[idx+1:]
		}
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
