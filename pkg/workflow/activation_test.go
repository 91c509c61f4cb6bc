package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alik-grt/flowd/pkg/models"
)

func TestEdgeActive(t *testing.T) {
	tests := []struct {
		name         string
		handle       string
		sourceOutput map[string]any
		expected     bool
	}{
		{
			name:         "non-branching source always active",
			handle:       "condition1",
			sourceOutput: map[string]any{"status": "ok"},
			expected:     true,
		},
		{
			name:         "matching branch tag",
			handle:       "condition1",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchCondition1},
			expected:     true,
		},
		{
			name:         "mismatched branch tag",
			handle:       "condition2",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchCondition1},
			expected:     false,
		},
		{
			name:         "legacy true handle matches condition1",
			handle:       "true",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchCondition1},
			expected:     true,
		},
		{
			name:         "legacy false handle matches condition2",
			handle:       "false",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchCondition2},
			expected:     true,
		},
		{
			name:         "else handle matches else tag",
			handle:       "else",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchElse},
			expected:     true,
		},
		{
			name:         "empty handle never gates",
			handle:       "",
			sourceOutput: map[string]any{models.BranchResultKey: models.BranchCondition1},
			expected:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge := &models.Edge{SourceNodeID: "src", TargetNodeID: "dst", SourceHandle: tt.handle}
			assert.Equal(t, tt.expected, edgeActive(edge, tt.sourceOutput))
		})
	}
}

func TestShouldExecute(t *testing.T) {
	trigger := &models.Node{ID: "trigger-1", Type: models.NodeTypeTrigger}
	target := &models.Node{ID: "target-1", Type: models.NodeTypeHTTP}

	incoming := []*models.Edge{
		{SourceNodeID: "if-1", TargetNodeID: "target-1", SourceHandle: "condition1"},
	}

	t.Run("trigger always executes", func(t *testing.T) {
		assert.True(t, shouldExecute(trigger, nil, map[string]map[string]any{}, "trigger-1"))
	})

	t.Run("non-trigger without incoming edges is skipped", func(t *testing.T) {
		assert.False(t, shouldExecute(target, nil, map[string]map[string]any{}, "trigger-1"))
	})

	t.Run("source not executed blocks", func(t *testing.T) {
		assert.False(t, shouldExecute(target, incoming, map[string]map[string]any{}, "trigger-1"))
	})

	t.Run("active edge from executed source", func(t *testing.T) {
		outputs := map[string]map[string]any{
			"if-1": {models.BranchResultKey: models.BranchCondition1},
		}
		assert.True(t, shouldExecute(target, incoming, outputs, "trigger-1"))
	})

	t.Run("inactive branch blocks", func(t *testing.T) {
		outputs := map[string]map[string]any{
			"if-1": {models.BranchResultKey: models.BranchElse},
		}
		assert.False(t, shouldExecute(target, incoming, outputs, "trigger-1"))
	})
}

func TestNodeInput_MergesInEdgeOrder(t *testing.T) {
	incoming := []*models.Edge{
		{SourceNodeID: "a", TargetNodeID: "c"},
		{SourceNodeID: "b", TargetNodeID: "c"},
	}
	outputs := map[string]map[string]any{
		"a": {"shared": "from-a", "onlyA": 1},
		"b": {"shared": "from-b", "onlyB": 2},
	}

	input := nodeInput(incoming, outputs)

	// Later edges win on conflicting keys.
	assert.Equal(t, "from-b", input["shared"])
	assert.Equal(t, 1, input["onlyA"])
	assert.Equal(t, 2, input["onlyB"])
}

func TestNodeInput_SkipsInactiveAndUnexecuted(t *testing.T) {
	incoming := []*models.Edge{
		{SourceNodeID: "if-1", TargetNodeID: "c", SourceHandle: "condition2"},
		{SourceNodeID: "missing", TargetNodeID: "c"},
	}
	outputs := map[string]map[string]any{
		"if-1": {models.BranchResultKey: models.BranchCondition1, "data": "x"},
	}

	input := nodeInput(incoming, outputs)

	assert.Empty(t, input)
}
