package ingest

import (
	"path"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// jsResolveExtensions are tried, in order, against a bare specifier base
// when resolving a relative JS/TS import to a concrete file.
var jsResolveExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// jsIndexExtensions are tried, in order, against specifier/index when the
// bare and extension-suffixed forms both miss.
var jsIndexExtensions = []string{"/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

// ProcessImports resolves each file's import statements to a target File
// node and emits an imports relationship. Relative Python imports are
// resolved by dot-count directory traversal; relative JS/TS specifiers are
// resolved against the importer's directory with a fixed extension/index
// search order. Bare or external specifiers (package imports, node_modules,
// stdlib) produce no edge — this is not an error, just no relationship.
// Duplicate (importer, target) pairs collapse into a single edge.
func ProcessImports(parseData *ParseData, g *graph.KnowledgeGraph) {
	fileIndex := make(map[string]bool)
	for _, node := range g.GetNodesByLabel(graph.NodeFile) {
		fileIndex[node.FilePath] = true
	}

	for filePath, result := range parseData.Files {
		sourceFileID := graph.GenerateID(graph.NodeFile, filePath, "")
		language := languageForFile(parseData, filePath)

		seen := make(map[string]bool)

		for _, imp := range result.Imports {
			var targetPath string
			switch language {
			case "python":
				targetPath = resolvePythonImport(filePath, imp, fileIndex)
			case "typescript", "javascript":
				targetPath = resolveJSImport(filePath, imp, fileIndex)
			default:
				continue
			}

			if targetPath == "" || !fileIndex[targetPath] {
				continue
			}

			key := sourceFileID + "->" + targetPath
			if seen[key] {
				continue
			}
			seen[key] = true

			targetFileID := graph.GenerateID(graph.NodeFile, targetPath, "")
			rel := &graph.GraphRelationship{
				ID:     "imports:" + sourceFileID + "->" + targetFileID,
				Type:   graph.RelImports,
				Source: sourceFileID,
				Target: targetFileID,
				Properties: map[string]any{
					"names": strings.Join(imp.Names, ","),
				},
			}
			g.AddRelationship(rel)
		}
	}
}

func languageForFile(parseData *ParseData, filePath string) string {
	ext := path.Ext(filePath)
	switch ext {
	case ".py":
		return "python"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	default:
		return ""
	}
}

// resolvePythonImport resolves a Python import statement to a repo-relative
// file path. Relative imports carry their leading-dot count inside
// Module (e.g. "..models" = 2 dots then "models"); dot_count-1 ancestor
// directories are climbed from the importer's directory, then {target}.py
// is tried, falling back to {target}/__init__.py. Absolute imports are
// resolved as a dotted path rooted at the repository root.
func resolvePythonImport(importerPath string, imp ImportStatement, fileIndex map[string]bool) string {
	if imp.IsRelative {
		dots := 0
		for dots < len(imp.Module) && imp.Module[dots] == '.' {
			dots++
		}
		rest := imp.Module[dots:]

		dir := path.Dir(importerPath)
		for i := 0; i < dots-1; i++ {
			dir = path.Dir(dir)
		}

		var target string
		if rest == "" {
			target = dir
		} else {
			target = path.Join(dir, strings.ReplaceAll(rest, ".", "/"))
		}

		if p := target + ".py"; fileIndex[p] {
			return p
		}
		if p := path.Join(target, "__init__.py"); fileIndex[p] {
			return p
		}
		return ""
	}

	// Absolute dotted module path, rooted at the repo root.
	base := strings.ReplaceAll(imp.Module, ".", "/")
	if p := base + ".py"; fileIndex[p] {
		return p
	}
	if p := path.Join(base, "__init__.py"); fileIndex[p] {
		return p
	}
	return ""
}

// resolveJSImport resolves a JS/TS import specifier that starts with "."
// against the importer's parent directory. Bare specifiers (package
// imports) are left unresolved.
func resolveJSImport(importerPath string, imp ImportStatement, fileIndex map[string]bool) string {
	spec := imp.Module
	if !strings.HasPrefix(spec, ".") {
		return ""
	}

	base := path.Join(path.Dir(importerPath), spec)

	if fileIndex[base] {
		return base
	}
	for _, ext := range jsResolveExtensions {
		if p := base + ext; fileIndex[p] {
			return p
		}
	}
	for _, suffix := range jsIndexExtensions {
		if p := base + suffix; fileIndex[p] {
			return p
		}
	}
	return ""
}
