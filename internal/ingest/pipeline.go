// Package ingest implements Axon's multi-phase code-indexing pipeline:
// walking, structure, parsing, import/call/heritage/type resolution,
// community detection, process-flow discovery, dead-code detection, and
// git coupling analysis, followed by persistence.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/knowgraph/knowgraph/internal/embeddings"
	"github.com/knowgraph/knowgraph/internal/graph"
	"github.com/knowgraph/knowgraph/internal/parse"
	"github.com/knowgraph/knowgraph/internal/storage"
)

// ParseData holds parsing results for all files, keyed by repo-relative path.
type ParseData struct {
	mu    sync.RWMutex
	Files map[string]*parse.ParseResult
}

// NewParseData creates a new ParseData instance.
func NewParseData() *ParseData {
	return &ParseData{Files: make(map[string]*parse.ParseResult)}
}

// AddFile adds parsing results for a file.
func (p *ParseData) AddFile(relPath string, result *parse.ParseResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Files[relPath] = result
}

// PipelineResult summarizes a pipeline run. Field names match the stats
// shape written to meta.json.
type PipelineResult struct {
	Files         int     `json:"files"`
	Symbols       int     `json:"symbols"`
	Relationships int     `json:"relationships"`
	Clusters      int     `json:"clusters"`
	Flows         int     `json:"flows"`
	DeadCode      int     `json:"dead_code"`
	CoupledPairs  int     `json:"coupled_pairs"`
	DurationSecs  float64 `json:"duration_secs"`
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline runs the full ingestion pipeline: walk, structure, parse,
// resolve imports/calls/heritage/types, detect communities and execution
// flows, flag dead code, mine git coupling, then persist. The global
// phases (community, processes, dead code, coupling) only run when full
// is true — the incremental watcher skips them between periodic full runs.
func RunPipeline(
	ctx context.Context,
	repoPath string,
	store storage.StorageBackend,
	full bool,
	progress ProgressCallback,
	genEmbeddings bool,
) (*graph.KnowledgeGraph, *PipelineResult, error) {
	result := &PipelineResult{}
	report := func(phase string, p float64) {
		if progress != nil {
			progress(phase, p)
		}
	}

	report("Walking files", 0.0)
	patterns, _ := loadGitignore(repoPath)
	entries, err := WalkRepo(repoPath, patterns)
	if err != nil {
		return nil, nil, fmt.Errorf("walking repo: %w", err)
	}
	result.Files = len(entries)
	report("Walking files", 1.0)

	g := graph.NewKnowledgeGraph()

	report("Processing structure", 0.0)
	ProcessStructure(entries, g)
	report("Processing structure", 1.0)

	report("Parsing code", 0.0)
	parseData := ProcessParsing(entries, g)
	report("Parsing code", 1.0)

	report("Resolving imports", 0.0)
	ProcessImports(parseData, g)
	report("Resolving imports", 1.0)

	report("Tracing calls", 0.0)
	ProcessCalls(parseData, g)
	report("Tracing calls", 1.0)

	report("Extracting heritage", 0.0)
	ProcessHeritage(parseData, g)
	report("Extracting heritage", 1.0)

	report("Analyzing types", 0.0)
	ProcessTypes(parseData, g)
	report("Analyzing types", 1.0)

	if full {
		report("Detecting communities", 0.0)
		result.Clusters = DetectCommunities(g)
		report("Detecting communities", 1.0)

		report("Detecting execution flows", 0.0)
		result.Flows = ProcessProcesses(g)
		report("Detecting execution flows", 1.0)

		report("Detecting dead code", 0.0)
		result.DeadCode = ProcessDeadCode(g)
		report("Detecting dead code", 1.0)

		report("Analyzing git history", 0.0)
		result.CoupledPairs = ProcessCoupling(g, repoPath)
		report("Analyzing git history", 1.0)
	}

	if genEmbeddings {
		report("Generating embeddings", 0.0)
		if err := GenerateAndStoreEmbeddings(ctx, g, store); err != nil {
			fmt.Printf("warning: embedding generation failed: %v\n", err)
		}
		report("Generating embeddings", 1.0)
	}

	result.Symbols = countSymbols(g)
	result.Relationships = g.RelationshipCount()

	if store != nil {
		report("Loading to storage", 0.0)
		if err := store.BulkLoad(ctx, g); err != nil {
			return nil, nil, fmt.Errorf("bulk load: %w", err)
		}
		report("Loading to storage", 1.0)
	}

	return g, result, nil
}

// ProcessParsing parses every walked file and creates a node for each
// extracted symbol, linked to its file via a defines relationship.
func ProcessParsing(entries []FileEntry, g *graph.KnowledgeGraph) *ParseData {
	parseData := NewParseData()

	for _, entry := range entries {
		parser := parse.ForLanguage(entry.Language)
		if parser == nil {
			continue
		}

		result, err := parser.Parse(entry.RelPath, entry.Content)
		if err != nil {
			continue
		}

		parseData.AddFile(entry.RelPath, result)

		fileID := graph.GenerateID(graph.NodeFile, entry.RelPath, "")

		for _, sym := range result.Symbols {
			qualified := symbolQualifiedName(sym)
			nodeID := graph.GenerateID(sym.Kind, entry.RelPath, qualified)

			node := &graph.GraphNode{
				ID:         nodeID,
				Label:      sym.Kind,
				Name:       sym.Name,
				FilePath:   entry.RelPath,
				StartLine:  sym.StartLine,
				EndLine:    sym.EndLine,
				Content:    sym.Content,
				Signature:  sym.Signature,
				Language:   entry.Language,
				ClassName:  sym.ClassName,
				IsExported: sym.IsExported,
				Decorators: sym.Decorators,
			}
			g.AddNode(node)

			g.AddRelationship(&graph.GraphRelationship{
				ID:     "defines:" + fileID + "->" + nodeID,
				Type:   graph.RelDefines,
				Source: fileID,
				Target: nodeID,
			})
		}
	}

	return parseData
}

func countSymbols(g *graph.KnowledgeGraph) int {
	count := 0
	labels := []graph.NodeLabel{
		graph.NodeFunction,
		graph.NodeMethod,
		graph.NodeClass,
		graph.NodeInterface,
		graph.NodeTypeAlias,
		graph.NodeEnum,
	}
	for _, label := range labels {
		count += g.CountNodesByLabel(label)
	}
	return count
}

// GenerateAndStoreEmbeddings generates TF-IDF embeddings for every node
// whose label is in embeddings.EmbeddableLabels and stores them via the
// backend.
func GenerateAndStoreEmbeddings(ctx context.Context, g *graph.KnowledgeGraph, store storage.StorageBackend) error {
	var nodes []*graph.GraphNode
	for _, label := range embeddings.EmbeddableLabels {
		nodes = append(nodes, g.GetNodesByLabel(label)...)
	}
	if len(nodes) == 0 || store == nil {
		return nil
	}

	embedder := embeddings.NewTFIDFEmbedder()
	embeddingList := embedder.EmbedNodes(g, nodes)

	storageEmbeddings := make([]storage.NodeEmbedding, len(nodes))
	for i, node := range nodes {
		storageEmbeddings[i] = storage.NodeEmbedding{
			NodeID:    node.ID,
			Embedding: embeddingList[i],
		}
	}

	return store.StoreEmbeddings(ctx, storageEmbeddings)
}
