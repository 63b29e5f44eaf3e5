package ingest

import (
	"sort"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// nameIndex maps a symbol name to every node id sharing that name across the
// repository. Built once per resolver phase over a fixed set of labels and
// shared by the calls, heritage, and types resolvers.
type nameIndex map[string][]string

// buildNameIndex groups nodes of the given labels by name.
func buildNameIndex(g *graph.KnowledgeGraph, labels ...graph.NodeLabel) nameIndex {
	idx := make(nameIndex)
	for _, label := range labels {
		for _, node := range g.GetNodesByLabel(label) {
			idx[node.Name] = append(idx[node.Name], node.ID)
		}
	}
	return idx
}

// symbolSpan is a single (start, end, span, id) interval-index entry.
type symbolSpan struct {
	start int
	end   int
	span  int
	id    string
}

// FileSymbolIndex is a per-file interval index for fast line-containment
// lookups, used to find the smallest enclosing callable for a call site or
// type reference. Entries are sorted by start line; lookups binary search
// for the insertion point then scan a small window to account for nested
// or overlapping symbols (e.g. a method nested inside its class's span).
type FileSymbolIndex struct {
	entries    map[string][]symbolSpan
	startLines map[string][]int
}

// buildFileSymbolIndex indexes nodes of the given labels, keyed by file path.
func buildFileSymbolIndex(g *graph.KnowledgeGraph, labels ...graph.NodeLabel) *FileSymbolIndex {
	entries := make(map[string][]symbolSpan)

	for _, label := range labels {
		for _, node := range g.GetNodesByLabel(label) {
			if node.FilePath == "" || node.StartLine <= 0 {
				continue
			}
			entries[node.FilePath] = append(entries[node.FilePath], symbolSpan{
				start: node.StartLine,
				end:   node.EndLine,
				span:  node.EndLine - node.StartLine,
				id:    node.ID,
			})
		}
	}

	startLines := make(map[string][]int, len(entries))
	for fp, spans := range entries {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		lines := make([]int, len(spans))
		for i, s := range spans {
			lines[i] = s.start
		}
		entries[fp] = spans
		startLines[fp] = lines
	}

	return &FileSymbolIndex{entries: entries, startLines: startLines}
}

// FindContainingSymbol returns the id of the most specific (smallest span)
// symbol in filePath whose line range contains line, or "" if none does.
func (idx *FileSymbolIndex) FindContainingSymbol(filePath string, line int) string {
	spans := idx.entries[filePath]
	if len(spans) == 0 {
		return ""
	}
	starts := idx.startLines[filePath]

	// bisect_right(starts, line) - 1: rightmost entry whose start <= line.
	pos := sort.Search(len(starts), func(i int) bool { return starts[i] > line })
	i0 := pos - 1

	searchStart := i0 - 10
	if searchStart < 0 {
		searchStart = 0
	}
	searchEnd := i0 + 5
	if searchEnd > len(spans) {
		searchEnd = len(spans)
	}

	bestID := ""
	bestSpan := int(^uint(0) >> 1) // max int

	for i := searchStart; i < searchEnd; i++ {
		if i < 0 {
			continue
		}
		s := spans[i]
		if s.start <= line && line <= s.end && s.span < bestSpan {
			bestSpan = s.span
			bestID = s.id
		}
	}

	return bestID
}
