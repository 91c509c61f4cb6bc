package agent

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates agent step handlers for registry integration.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeAgent
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler()
}

// Schema returns the configuration schema for agent nodes.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier the agent would use.",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt template for the agent.",
			},
		},
	}
}
