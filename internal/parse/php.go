package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// PHPParser parses PHP source using tree-sitter.
type PHPParser struct {
	lang *sitter.Language
}

func NewPHPParser() *PHPParser {
	return &PHPParser{lang: php.GetLanguage()}
}

func (p *PHPParser) Language() string { return "php" }

var phpIdentifierTypes = map[string]bool{"name": true, "identifier": true}

var phpBuiltinTypes = map[string]bool{
	"int": true, "string": true, "float": true, "bool": true, "array": true,
	"mixed": true, "void": true, "object": true, "self": true, "static": true, "null": true,
}

func (p *PHPParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()

	tree := parseTree(p.lang, content, filePath)
	if tree == nil {
		return result, nil
	}
	defer tree.Close()

	p.walk(tree.RootNode(), content, "", result)
	return result, nil
}

func (p *PHPParser) walk(node *sitter.Node, content []byte, currentClass string, result *ParseResult) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "class_declaration", "interface_declaration", "trait_declaration":
			p.handleType(child, content, result)
		case "namespace_use_declaration":
			p.extractImport(child, content, result)
		case "function_definition", "method_declaration":
			p.handleFunction(child, content, currentClass, result)
		default:
			p.descendCalls(child, content, result)
		}
	}
}

func (p *PHPParser) handleType(node *sitter.Node, content []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeClass
	if node.Type() == "interface_declaration" {
		kind = graph.NodeInterface
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      name,
		Kind:      kind,
		StartLine: lineOf(node),
		EndLine:   endLineOf(node),
		Content:   nodeText(node, content),
		Signature: "class " + name,
	})

	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "base_clause":
			walk(c, func(n *sitter.Node) bool {
				if n.Type() == "name" {
					result.Heritage = append(result.Heritage, Heritage{
						ClassName: name, Kind: HeritageExtends, ParentName: nodeText(n, content),
					})
				}
				return true
			})
		case "class_interface_clause":
			walk(c, func(n *sitter.Node) bool {
				if n.Type() == "name" {
					result.Heritage = append(result.Heritage, Heritage{
						ClassName: name, Kind: HeritageImplements, ParentName: nodeText(n, content),
					})
				}
				return true
			})
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, content, name, result)
	}
}

func (p *PHPParser) handleFunction(node *sitter.Node, content []byte, className string, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)

	kind := graph.NodeFunction
	if className != "" {
		kind = graph.NodeMethod
	}

	sig := "function " + name
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig = "function " + name + nodeText(params, content)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig += ": " + nodeText(ret, content)
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

func (p *PHPParser) extractTypeRefs(node *sitter.Node, content []byte, result *ParseResult) {
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		if name := firstIdentifier(ret, content, phpIdentifierTypes); name != "" && !phpBuiltinTypes[name] {
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
		if param == nil {
			continue
		}
		if param.Type() != "simple_parameter" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		nameNode := param.ChildByFieldName("name")
		if typeNode == nil {
			continue
		}
		name := firstIdentifier(typeNode, content, phpIdentifierTypes)
		if name == "" || phpBuiltinTypes[name] {
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

func (p *PHPParser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	walk(node, func(n *sitter.Node) bool {
		if n.Type() == "qualified_name" || n.Type() == "name" {
			result.Imports = append(result.Imports, ImportStatement{
				Module: nodeText(n, content), Line: lineOf(node),
			})
			return false
		}
		return true
	})
}

func (p *PHPParser) descendCalls(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "trait_declaration",
			"function_definition", "method_declaration", "anonymous_function_creation_expression":
			return n == node
		case "function_call_expression":
			p.extractCall(n, content, result)
		case "member_call_expression", "scoped_call_expression":
			p.extractMemberCall(n, content, result)
		case "object_creation_expression":
			if t := n.ChildByFieldName("class"); t != nil {
				result.Calls = append(result.Calls, CallSite{
					Name: nodeText(t, content), Line: lineOf(n),
				})
			}
		}
		return true
	})
}

func (p *PHPParser) extractCall(n *sitter.Node, content []byte, result *ParseResult) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	result.Calls = append(result.Calls, CallSite{Name: nodeText(fn, content), Line: lineOf(n)})
}

func (p *PHPParser) extractMemberCall(n *sitter.Node, content []byte, result *ParseResult) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	receiver := ""
	if obj := n.ChildByFieldName("object"); obj != nil {
		receiver = strings.TrimPrefix(nodeText(obj, content), "$")
	}
	result.Calls = append(result.Calls, CallSite{
		Name: nodeText(nameNode, content), Receiver: receiver, Line: lineOf(n),
	})
}
