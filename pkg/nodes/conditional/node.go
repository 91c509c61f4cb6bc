// Package conditional provides the `if` branching step handler.
package conditional

import (
	"context"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/expr"
	"github.com/alik-grt/flowd/pkg/models"
)

// Handler implements the `if` step. It evaluates condition1 and condition2
// from the node config in order and tags the passthrough output with the
// first truthy branch, or `else` when neither holds. Evaluation errors are
// treated as a falsy result, never a node failure.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an `if` step handler.
func NewHandler() *Handler {
	return &Handler{logger: slog.With("module", "conditional_node")}
}

// Execute evaluates the configured conditions and returns the input
// augmented with the branch tag under the reserved key.
func (h *Handler) Execute(_ context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	condition1 := node.ConfigString("condition1")
	condition2 := node.ConfigString("condition2")

	// Legacy single-condition nodes map onto condition1.
	if condition1 == "" && condition2 == "" {
		condition1 = node.ConfigString("condition")
	}

	tag := models.BranchElse

	switch {
	case condition1 != "" && expr.EvaluateCondition(condition1, input):
		tag = models.BranchCondition1
	case condition2 != "" && expr.EvaluateCondition(condition2, input):
		tag = models.BranchCondition2
	case condition1 == "" && condition2 == "":
		h.logger.Warn("If node has no conditions configured, defaulting to else", "node_id", node.ID)
	}

	output := make(map[string]any, len(input)+1)
	for key, value := range input {
		output[key] = value
	}

	output[models.BranchResultKey] = tag

	return output, nil
}
