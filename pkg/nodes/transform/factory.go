package transform

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates transform step handlers for registry integration.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeTransform
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler()
}

// Schema returns nil: the template lives on the node, config is free-form.
func (f *Factory) Schema() map[string]any {
	return nil
}
