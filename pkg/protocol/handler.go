// Package protocol defines the contracts between the execution engine and
// its step handlers.
package protocol

import (
	"context"

	"github.com/alik-grt/flowd/pkg/models"
)

// StepHandler executes one typed workflow node. Implementations must never
// mutate the node definition; side effects are limited to each handler's
// documented contract.
type StepHandler interface {
	// Execute runs the node against its resolved input and returns the
	// node's output map. A returned error fails the node.
	Execute(ctx context.Context, node *models.Node, input map[string]any) (map[string]any, error)
}

// HandlerFactory builds a StepHandler for a node type and describes its
// configuration schema.
type HandlerFactory interface {
	// Type returns the node type this factory serves.
	Type() models.NodeType

	// Create builds the handler instance.
	Create() StepHandler

	// Schema returns the JSON schema for node configuration, or nil when
	// the node type takes free-form config.
	Schema() map[string]any
}

// Notifier is the push channel the engine reports run progress to. Calls
// are fire-and-forget: implementations must never block the run or surface
// channel failures back to it.
type Notifier interface {
	NodeStatusChanged(ctx context.Context, workflowID, nodeID string, status models.NodeRunStatus)
	ExecutionCreated(ctx context.Context, workflowID string, execution *models.Execution)
	ExecutionStarted(ctx context.Context, workflowID, executionID string)
	ExecutionUpdated(ctx context.Context, workflowID string, execution *models.Execution)
	ExecutionFinished(ctx context.Context, workflowID, executionID string, output map[string]any)
	ExecutionError(ctx context.Context, workflowID, executionID, message string)
}
