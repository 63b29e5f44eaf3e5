package ingest

import (
	"path/filepath"
	"strings"

	"github.com/knowgraph/knowgraph/internal/graph"
)

// ProcessStructure creates one File node per walked entry and one Folder
// node per unique ancestor directory, connected by contains relationships.
// Root-level files have no containing folder — intentional, per the
// directory-tree model: there is no synthetic "root" folder node.
func ProcessStructure(entries []FileEntry, g *graph.KnowledgeGraph) {
	seenFolders := make(map[string]bool)

	for _, entry := range entries {
		fileNode := &graph.GraphNode{
			ID:       graph.GenerateID(graph.NodeFile, entry.RelPath, ""),
			Label:    graph.NodeFile,
			Name:     filepath.Base(entry.RelPath),
			FilePath: entry.RelPath,
			Language: entry.Language,
			Content:  string(entry.Content),
		}
		g.AddNode(fileNode)

		dir := filepath.ToSlash(filepath.Dir(entry.RelPath))
		if dir == "." {
			continue
		}

		parts := strings.Split(dir, "/")
		for i := range parts {
			folderPath := strings.Join(parts[:i+1], "/")
			if !seenFolders[folderPath] {
				seenFolders[folderPath] = true
				folderNode := &graph.GraphNode{
					ID:       graph.GenerateID(graph.NodeFolder, folderPath, ""),
					Label:    graph.NodeFolder,
					Name:     parts[i],
					FilePath: folderPath,
				}
				g.AddNode(folderNode)

				if i > 0 {
					parentPath := strings.Join(parts[:i], "/")
					parentID := graph.GenerateID(graph.NodeFolder, parentPath, "")
					rel := &graph.GraphRelationship{
						ID:     "contains:" + parentID + "->" + folderNode.ID,
						Type:   graph.RelContains,
						Source: parentID,
						Target: folderNode.ID,
					}
					g.AddRelationship(rel)
				}
			}
		}

		lastFolderID := graph.GenerateID(graph.NodeFolder, dir, "")
		rel := &graph.GraphRelationship{
			ID:     "contains:" + lastFolderID + "->" + fileNode.ID,
			Type:   graph.RelContains,
			Source: lastFolderID,
			Target: fileNode.ID,
		}
		g.AddRelationship(rel)
	}
}
