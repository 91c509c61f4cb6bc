// Package transform provides the data reshaping step handler.
package transform

import (
	"context"
	"sort"

	"github.com/alik-grt/flowd/pkg/expr"
	"github.com/alik-grt/flowd/pkg/models"
)

// Handler implements the transform step: each template entry is evaluated
// as a whole-value expression against the node input and written to the
// same key in the output. Nodes without a template pass the input through.
type Handler struct{}

// NewHandler creates a transform step handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Execute applies the node's template to the input.
func (h *Handler) Execute(_ context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	if len(node.Template) == 0 {
		return input, nil
	}

	output := make(map[string]any, len(node.Template))

	// Deterministic key order.
	keys := make([]string, 0, len(node.Template))
	for key := range node.Template {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		output[key] = expr.EvaluateTemplate(node.Template[key], input)
	}

	return output, nil
}
