package trigger

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates trigger step handlers for registry integration.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeTrigger
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler()
}

// Schema returns the configuration schema for trigger nodes.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhookPath": map[string]any{
				"type":        "string",
				"description": "Generated webhook path token (webhook triggers only).",
			},
			"cronExpression": map[string]any{
				"type":        "string",
				"description": "Cron expression (cron triggers only), e.g. '*/5 * * * *'.",
			},
			"cronActive": map[string]any{
				"type":        "boolean",
				"description": "Whether the cron job is armed.",
			},
		},
	}
}
