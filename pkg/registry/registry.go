// Package registry provides the lookup table mapping node types to their
// step handlers.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds one handler factory per executable node type. It is built
// once at startup and read-only afterwards.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeType]protocol.HandlerFactory
}

// NewRegistry creates an empty handler registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeType]protocol.HandlerFactory),
	}
}

// Register adds a handler factory, replacing any previous factory for the
// same node type.
func (r *Registry) Register(factory protocol.HandlerFactory) {
	r.factories[factory.Type()] = factory
}

// HandlerFor returns a handler for the node type.
func (r *Registry) HandlerFor(nodeType models.NodeType) (protocol.StepHandler, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(), nil
}

// Registered reports whether a node type has a handler.
func (r *Registry) Registered(nodeType models.NodeType) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// ValidateConfig checks a node's config map against the factory's JSON
// schema. Node types without a schema accept any config.
func (r *Registry) ValidateConfig(nodeType models.NodeType, config map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return fmt.Errorf("node type '%s' not registered", nodeType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for node type '%s': %w", nodeType, err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for node type '%s': %w", nodeType, err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Warn("Node config validation error",
				"node_type", nodeType, "error", desc.String())
		}

		return fmt.Errorf("invalid config for node type '%s': %s", nodeType, result.Errors()[0].String())
	}

	return nil
}
