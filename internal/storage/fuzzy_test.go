package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowgraph/knowgraph/internal/graph"
)

func TestFuzzyNameScore(t *testing.T) {
	t.Parallel()

	t.Run("ExactMatch", func(t *testing.T) {
		assert.Equal(t, 1.0, fuzzyNameScore("getUser", "getUser"))
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, fuzzyNameScore("GetUser", "getuser"))
	})

	t.Run("SubstringMatch", func(t *testing.T) {
		score := fuzzyNameScore("getUserById", "getUser")
		assert.InDelta(t, 0.75, score, 1e-9)
	})

	t.Run("TypoStillScores", func(t *testing.T) {
		score := fuzzyNameScore("getUser", "getUsre")
		assert.Greater(t, score, 0.5)
	})

	t.Run("UnrelatedNamesScoreZero", func(t *testing.T) {
		score := fuzzyNameScore("getUser", "parseJsonDocument")
		assert.Equal(t, 0.0, score)
	})
}

func TestFuzzyMatchNodes(t *testing.T) {
	t.Parallel()

	nodes := []*graph.GraphNode{
		{ID: "function:a.py:getUser", Name: "getUser"},
		{ID: "function:b.py:getUserById", Name: "getUserById"},
		{ID: "function:c.py:parseJson", Name: "parseJson"},
	}

	results := fuzzyMatchNodes(nodes, "getUser", 10)
	require.GreaterOrEqual(t, len(results), 2)
	for _, r := range results {
		assert.NotEqual(t, "parseJson", r.NodeName)
	}

	limited := fuzzyMatchNodes(nodes, "getUser", 1)
	assert.Len(t, limited, 1)
	assert.Equal(t, "getUser", limited[0].NodeName)
}
