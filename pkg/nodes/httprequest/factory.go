package httprequest

import (
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Factory creates http step handlers for registry integration.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

// Type returns the node type this factory serves.
func (f *Factory) Type() models.NodeType {
	return models.NodeTypeHTTP
}

// Create builds the handler instance.
func (f *Factory) Create() protocol.StepHandler {
	return NewHandler()
}

// Schema returns the configuration schema for http nodes. URL, method,
// headers and body live on the node itself, so the config map is free-form.
func (f *Factory) Schema() map[string]any {
	return nil
}
