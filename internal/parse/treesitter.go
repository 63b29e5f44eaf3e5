package parse

import (
	"context"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree runs a tree-sitter grammar over content and logs a warning with
// the syntax-error count rather than failing — tree-sitter is error
// tolerant, and a parse error on part of a file should not drop the rest of
// the file's symbols (§7: a parser failure degrades to an empty or partial
// result, never an abort).
func parseTree(lang *sitter.Language, content []byte, filePath string) *sitter.Tree {
	p := sitter.NewParser()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		slog.Warn("parser.treesitter.failed", "path", filePath, "error", err)
		return nil
	}

	if root := tree.RootNode(); root != nil && root.HasError() {
		if n := countErrorNodes(root); n > 0 {
			slog.Warn("parser.treesitter.syntax_errors", "path", filePath, "error_count", n)
		}
	}

	return tree
}

func countErrorNodes(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.IsError() || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countErrorNodes(n.Child(i))
	}
	return count
}

func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func lineOf(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

func endLineOf(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.EndPoint().Row) + 1
}

// firstIdentifier performs the depth-first walk §4.3 specifies for complex
// type expressions: the outer constructor's name is reported for generic
// compound types (Optional[User] -> Optional), found as the first
// identifier-shaped node encountered.
func firstIdentifier(n *sitter.Node, content []byte, identifierTypes map[string]bool) string {
	if n == nil {
		return ""
	}
	if identifierTypes[n.Type()] {
		return nodeText(n, content)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if name := firstIdentifier(n.Child(i), content, identifierTypes); name != "" {
			return name
		}
	}
	return ""
}

func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
