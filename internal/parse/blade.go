package parse

import (
	"regexp"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// BladeParser extracts component usage, view inclusions, and the implicit
// view symbol from Laravel Blade templates. Blade has no tree-sitter
// grammar in the ecosystem pack, so this stays regex-based — the one
// standard-library-only parser in the suite.
type BladeParser struct {
	componentRegex     *regexp.Regexp
	includeRegex       *regexp.Regexp
	componentDirective *regexp.Regexp
	extendsRegex       *regexp.Regexp
}

func NewBladeParser() *BladeParser {
	return &BladeParser{
		componentRegex:     regexp.MustCompile(`<x-([\w.-]+)`),
		includeRegex:       regexp.MustCompile(`@include\(['"]([\w.-]+)['"]`),
		componentDirective: regexp.MustCompile(`@component\(['"]([\w.-]+)['"]`),
		extendsRegex:       regexp.MustCompile(`@extends\(['"]([\w.-]+)['"]`),
	}
}

func (p *BladeParser) Language() string { return "blade" }

func (p *BladeParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := newParseResult()
	source := string(content)

	for _, m := range p.componentRegex.FindAllStringSubmatchIndex(source, -1) {
		name := source[m[2]:m[3]]
		result.Calls = append(result.Calls, CallSite{
			Name: "x-" + name, Receiver: "BladeComponent", Line: lineNumber(source, m[0]),
		})
	}

	for _, m := range p.includeRegex.FindAllStringSubmatchIndex(source, -1) {
		name := source[m[2]:m[3]]
		result.Calls = append(result.Calls, CallSite{
			Name: name, Receiver: "BladeInclude", Line: lineNumber(source, m[0]),
		})
	}

	for _, m := range p.componentDirective.FindAllStringSubmatchIndex(source, -1) {
		name := source[m[2]:m[3]]
		result.Calls = append(result.Calls, CallSite{
			Name: name, Receiver: "BladeComponent", Line: lineNumber(source, m[0]),
		})
	}

	// @extends('layouts.app') is the Blade equivalent of template
	// inheritance: the parent layout view is the closest the language gets
	// to a heritage relationship.
	if m := p.extendsRegex.FindStringSubmatch(source); m != nil {
		result.Heritage = append(result.Heritage, Heritage{
			ClassName: bladeViewName(filePath), Kind: HeritageExtends, ParentName: m[1],
		})
	}

	viewName := bladeViewName(filePath)
	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      viewName,
		Kind:      graph.NodeFunction,
		StartLine: 1,
		EndLine:   strings.Count(source, "\n") + 1,
		Content:   source,
		Signature: "view " + viewName,
	})

	return result, nil
}

func bladeViewName(filePath string) string {
	name := strings.ReplaceAll(filePath, "resources/views/", "")
	name = strings.TrimSuffix(name, ".blade.php")
	return strings.ReplaceAll(name, "/", ".")
}

func lineNumber(source string, byteOffset int) int {
	if byteOffset > len(source) {
		byteOffset = len(source)
	}
	return strings.Count(source[:byteOffset], "\n") + 1
}
