// Package parse provides tree-sitter based code parsers for multiple languages.
//
// A Parser is a pure function (content, path) -> ParseResult: it never
// touches the graph or the filesystem. The per-file mutation stage in
// internal/ingest consumes ParseResult values sequentially so that node and
// edge ids stay a deterministic function of repository contents.
package parse

import "github.com/knowgraph/knowgraph/internal/graph"

// ParsedSymbol represents a code entity extracted from source.
type ParsedSymbol struct {
	Name      string
	Kind      graph.NodeLabel
	StartLine int
	EndLine   int
	Content   string
	Signature string

	// ClassName is the lexically owning class for a method; empty for
	// functions and nested-function symbols.
	ClassName string

	IsExported bool

	// Decorators holds decorator names at syntactic precision: bare
	// identifier, dotted, or call-expression (dotted function name only).
	Decorators []string
}

// ImportStatement represents a single import statement.
type ImportStatement struct {
	// Module is the dotted module path. Relative imports carry their
	// leading-dot count inside this string (e.g. "..models").
	Module string

	// Names is the list of imported symbol names; may be empty for a
	// star or bare-module import.
	Names []string

	// Alias is the import alias, if any.
	Alias string

	IsRelative bool
	Line       int
}

// CallSite represents a function/method call expression.
type CallSite struct {
	Name string

	// Receiver is the textual root of the call target: empty for a bare
	// call, "self"/"this" for an instance call, otherwise the root
	// identifier of a dotted chain.
	Receiver string

	Line int

	// Arguments holds only bare-identifier arguments (callback tracking);
	// literals and nested expressions are discarded.
	Arguments []string
}

// TypeRefKind is the usage role of a type reference.
type TypeRefKind string

const (
	TypeRefParam    TypeRefKind = "param"
	TypeRefReturn   TypeRefKind = "return"
	TypeRefVariable TypeRefKind = "variable"
)

// TypeReference represents a reference to a named type.
type TypeReference struct {
	Name string
	Kind TypeRefKind
	Line int

	// ParamName is the name of the parameter carrying this type, when
	// Kind is TypeRefParam.
	ParamName string
}

// HeritageKind distinguishes inheritance from structural conformance.
type HeritageKind string

const (
	HeritageExtends    HeritageKind = "extends"
	HeritageImplements HeritageKind = "implements"
)

// Heritage is a single (child, kind, parent) tuple.
type Heritage struct {
	ClassName  string
	Kind       HeritageKind
	ParentName string
}

// ParseResult contains everything extracted from a single source file.
type ParseResult struct {
	Symbols  []ParsedSymbol
	Imports  []ImportStatement
	Calls    []CallSite
	TypeRefs []TypeReference
	Heritage []Heritage

	// Exports lists names in the module's explicit export list (__all__,
	// `export` declarations, module.exports).
	Exports []string
}

// Parser is the capability every language implementation satisfies.
type Parser interface {
	// Parse extracts symbols, imports, calls, type references, heritage,
	// and exports from source text. Parse never returns a non-nil error
	// for malformed input — tree-sitter is error-tolerant, so a syntax
	// error yields a partial result, not a failure; Parse only fails on
	// an unrecoverable precondition (e.g. a nil grammar).
	Parse(filePath string, content []byte) (*ParseResult, error)

	// Language returns the language tag this parser handles.
	Language() string
}

func newParseResult() *ParseResult {
	return &ParseResult{
		Symbols:  []ParsedSymbol{},
		Imports:  []ImportStatement{},
		Calls:    []CallSite{},
		TypeRefs: []TypeReference{},
		Heritage: []Heritage{},
		Exports:  []string{},
	}
}

// applyExports reconciles each symbol's IsExported flag against the
// module's explicit export list: a name in Exports is exported regardless
// of naming convention, even if it was provisionally marked unexported
// (an underscore-prefixed Python name, or a name bound before its `export
// { name }` clause) while walking the symbol table.
func applyExports(result *ParseResult) {
	if len(result.Exports) == 0 {
		return
	}
	exported := make(map[string]bool, len(result.Exports))
	for _, name := range result.Exports {
		exported[name] = true
	}
	for i := range result.Symbols {
		if exported[result.Symbols[i].Name] {
			result.Symbols[i].IsExported = true
		}
	}
}
