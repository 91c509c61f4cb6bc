package conditional

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates `if` step handlers for registry integration.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeIf
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler()
}

// Schema returns the configuration schema for `if` nodes.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition1": map[string]any{
				"type":        "string",
				"description": "First branch condition, e.g. '{{status == 404}}'.",
			},
			"condition2": map[string]any{
				"type":        "string",
				"description": "Second branch condition, evaluated when the first is falsy.",
			},
			"condition": map[string]any{
				"type":        "string",
				"description": "Legacy single condition, treated as condition1.",
			},
		},
	}
}
