package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowgraph/knowgraph/internal/graph"
)

func TestIsEntryPoint(t *testing.T) {
	t.Parallel()

	t.Run("MainFunction", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		node := &graph.GraphNode{ID: "function:main.py:main", Name: "main", Label: graph.NodeFunction, FilePath: "main.py"}
		g.AddNode(node)
		assert.True(t, isEntryPoint(g, node))
	})

	t.Run("TestFunctionPython", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		node := &graph.GraphNode{ID: "function:test_something.py:test_something", Name: "test_something", Label: graph.NodeFunction, FilePath: "test_something.py"}
		g.AddNode(node)
		assert.True(t, isEntryPoint(g, node))
	})

	t.Run("FrameworkDecorator", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		node := &graph.GraphNode{
			ID: "function:app.py:index", Name: "index", Label: graph.NodeFunction, FilePath: "app.py",
			Decorators: []string{"app.route"},
		}
		g.AddNode(node)
		assert.True(t, isEntryPoint(g, node))
	})

	t.Run("ExportedWithNoIncomingCalls", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		node := &graph.GraphNode{
			ID: "function:lib.py:publicApi", Name: "publicApi", Label: graph.NodeFunction,
			FilePath: "lib.py", IsExported: true,
		}
		g.AddNode(node)
		assert.True(t, isEntryPoint(g, node))
	})

	t.Run("RegularFunctionWithCaller", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()
		node := &graph.GraphNode{ID: "function:utils.py:helper", Name: "helper", Label: graph.NodeFunction, FilePath: "utils.py"}
		g.AddNode(node)
		g.AddNode(&graph.GraphNode{ID: "function:utils.py:caller", Name: "caller", Label: graph.NodeFunction, FilePath: "utils.py"})
		g.AddRelationship(&graph.GraphRelationship{ID: "calls:1", Type: graph.RelCalls, Source: "function:utils.py:caller", Target: "function:utils.py:helper"})
		assert.False(t, isEntryPoint(g, node))
	})
}

func TestProcessProcesses(t *testing.T) {
	t.Parallel()

	t.Run("CreatesProcessNodesAndSteps", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()

		g.AddNode(&graph.GraphNode{ID: "function:main.py:main", Label: graph.NodeFunction, Name: "main", FilePath: "main.py"})
		g.AddNode(&graph.GraphNode{ID: "function:main.py:helper", Label: graph.NodeFunction, Name: "helper", FilePath: "main.py"})

		g.AddRelationship(&graph.GraphRelationship{
			ID: "calls:1", Type: graph.RelCalls,
			Source: "function:main.py:main", Target: "function:main.py:helper",
			Properties: map[string]any{"confidence": 1.0},
		})

		count := ProcessProcesses(g)

		assert.Greater(t, count, 0)
		assert.NotEmpty(t, g.GetNodesByLabel(graph.NodeProcess))
		assert.NotEmpty(t, g.GetRelationshipsByType(graph.RelStepInProcess))
	})

	t.Run("NoEntryPoints", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()

		g.AddNode(&graph.GraphNode{ID: "function:utils.py:helper1", Label: graph.NodeFunction, Name: "helper1", FilePath: "utils.py"})
		g.AddNode(&graph.GraphNode{ID: "function:utils.py:helper2", Label: graph.NodeFunction, Name: "helper2", FilePath: "utils.py"})
		g.AddRelationship(&graph.GraphRelationship{ID: "calls:1", Type: graph.RelCalls, Source: "function:utils.py:helper1", Target: "function:utils.py:helper2"})

		count := ProcessProcesses(g)

		assert.Equal(t, 0, count)
	})
}

func TestTraceFlow(t *testing.T) {
	t.Parallel()

	t.Run("TracesCallChain", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()

		g.AddNode(&graph.GraphNode{ID: "function:main.py:main", Label: graph.NodeFunction, Name: "main", FilePath: "main.py"})
		g.AddNode(&graph.GraphNode{ID: "function:main.py:step1", Label: graph.NodeFunction, Name: "step1", FilePath: "main.py"})
		g.AddNode(&graph.GraphNode{ID: "function:main.py:step2", Label: graph.NodeFunction, Name: "step2", FilePath: "main.py"})

		g.AddRelationship(&graph.GraphRelationship{ID: "calls:1", Type: graph.RelCalls, Source: "function:main.py:main", Target: "function:main.py:step1"})
		g.AddRelationship(&graph.GraphRelationship{ID: "calls:2", Type: graph.RelCalls, Source: "function:main.py:step1", Target: "function:main.py:step2"})

		flow := traceFlow(g, "function:main.py:main")

		assert.Len(t, flow, 3)
	})

	t.Run("RespectsMaxDepth", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()

		for i := 0; i < 20; i++ {
			name := "func" + string(rune('A'+i))
			g.AddNode(&graph.GraphNode{ID: "function:main.py:" + name, Label: graph.NodeFunction, Name: name, FilePath: "main.py"})
		}
		for i := 0; i < 19; i++ {
			src := "func" + string(rune('A'+i))
			tgt := "func" + string(rune('A'+i+1))
			g.AddRelationship(&graph.GraphRelationship{
				ID: "calls:" + string(rune('A'+i)), Type: graph.RelCalls,
				Source: "function:main.py:" + src, Target: "function:main.py:" + tgt,
			})
		}

		flow := traceFlow(g, "function:main.py:funcA")

		assert.LessOrEqual(t, len(flow), processMaxDepth+1)
	})

	t.Run("HandlesCycles", func(t *testing.T) {
		g := graph.NewKnowledgeGraph()

		g.AddNode(&graph.GraphNode{ID: "function:main.py:A", Label: graph.NodeFunction, Name: "A", FilePath: "main.py"})
		g.AddNode(&graph.GraphNode{ID: "function:main.py:B", Label: graph.NodeFunction, Name: "B", FilePath: "main.py"})
		g.AddNode(&graph.GraphNode{ID: "function:main.py:C", Label: graph.NodeFunction, Name: "C", FilePath: "main.py"})

		g.AddRelationship(&graph.GraphRelationship{ID: "calls:1", Type: graph.RelCalls, Source: "function:main.py:A", Target: "function:main.py:B"})
		g.AddRelationship(&graph.GraphRelationship{ID: "calls:2", Type: graph.RelCalls, Source: "function:main.py:B", Target: "function:main.py:C"})
		g.AddRelationship(&graph.GraphRelationship{ID: "calls:3", Type: graph.RelCalls, Source: "function:main.py:C", Target: "function:main.py:A"})

		flow := traceFlow(g, "function:main.py:A")
		assert.Len(t, flow, 3)
	})
}

func TestDeduplicateFlows(t *testing.T) {
	t.Parallel()

	t.Run("DropsHeavyOverlapKeepingLongest", func(t *testing.T) {
		flows := [][]string{
			{"A", "B", "C"},
			{"A", "B", "C"},
			{"A", "B", "D"},
		}

		deduped := deduplicateFlows(flows)

		assert.Len(t, deduped, 1)
		assert.Equal(t, []string{"A", "B", "C"}, deduped[0])
	})

	t.Run("PreservesDisjointFlows", func(t *testing.T) {
		flows := [][]string{
			{"A", "B"},
			{"C", "D"},
			{"E", "F"},
		}

		deduped := deduplicateFlows(flows)

		assert.Len(t, deduped, 3)
	})

	t.Run("DropsSingleNodeFlows", func(t *testing.T) {
		flows := [][]string{{"A"}}

		deduped := deduplicateFlows(flows)

		assert.Empty(t, deduped)
	})
}
