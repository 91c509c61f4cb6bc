package delay

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates delay step handlers for registry integration.
type Factory struct {
	notifier protocol.Notifier
}

// NewFactory creates a new factory instance.
func NewFactory(notifier protocol.Notifier) protocol.HandlerFactory {
	return &Factory{notifier: notifier}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeDelay
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler(f.notifier)
}

// Schema returns the configuration schema for delay nodes.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"delayMs": map[string]any{
				"type":        "number",
				"description": "Milliseconds to pause before continuing.",
			},
			"until": map[string]any{
				"type":        "string",
				"description": "RFC 3339 timestamp to wait for. Ignored when delayMs is set.",
			},
		},
	}
}
