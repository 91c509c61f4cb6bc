// Package webhook maintains the registry of armed webhook paths and
// dispatches incoming requests to workflow runs.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/triggers"
)

var (
	// ErrUnknownPath is returned when no trigger is registered for a path.
	ErrUnknownPath = errors.New("no webhook registered for path")

	// ErrWorkflowNotActive is returned when a webhook fires for a workflow
	// that is not active.
	ErrWorkflowNotActive = errors.New("workflow is not active")
)

// Target is the trigger a registered path points at.
type Target struct {
	WorkflowID string
	NodeID     string
}

// Registry maps webhook paths to their trigger nodes. It is safe for
// concurrent use.
type Registry struct {
	workflows persistence.WorkflowRepository
	runner    triggers.DetachedRunStarter
	logger    *slog.Logger

	mu    sync.RWMutex
	paths map[string]Target
}

// NewRegistry creates an empty webhook registry.
func NewRegistry(workflows persistence.WorkflowRepository, runner triggers.DetachedRunStarter, logger *slog.Logger) *Registry {
	return &Registry{
		workflows: workflows,
		runner:    runner,
		logger:    logger,
		paths:     make(map[string]Target),
	}
}

// Init registers every persisted webhook trigger that already carries a
// path. Called once at startup.
func (r *Registry) Init(ctx context.Context) error {
	nodes, err := r.workflows.TriggerNodes(ctx, models.TriggerSubtypeWebhook)
	if err != nil {
		return fmt.Errorf("failed to load webhook triggers: %w", err)
	}

	for _, node := range nodes {
		path := node.ConfigString(models.ConfigKeyWebhookPath)
		if path == "" {
			continue
		}

		r.Register(path, node.WorkflowID, node.ID)
	}

	r.logger.Info("Webhook registry initialized", "registered", len(r.paths))

	return nil
}

// Register arms a path. Re-registering a path replaces its target.
func (r *Registry) Register(path, workflowID, nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths[path] = Target{WorkflowID: workflowID, NodeID: nodeID}
	r.logger.Info("Webhook registered", "path", path, "workflow_id", workflowID, "node_id", nodeID)
}

// Unregister disarms every path pointing at the given node.
func (r *Registry) Unregister(workflowID, nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, target := range r.paths {
		if target.WorkflowID == workflowID && target.NodeID == nodeID {
			delete(r.paths, path)
			r.logger.Info("Webhook unregistered", "path", path, "node_id", nodeID)
		}
	}
}

// UnregisterWorkflow disarms every path belonging to a workflow.
func (r *Registry) UnregisterWorkflow(workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, target := range r.paths {
		if target.WorkflowID == workflowID {
			delete(r.paths, path)
		}
	}
}

// Lookup returns the target registered for a path.
func (r *Registry) Lookup(path string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.paths[path]

	return target, ok
}

// Dispatch resolves a path and starts the workflow run with the request
// payload as input. The workflow must still be active at dispatch time.
// The run finishes in the background; the returned id identifies it.
func (r *Registry) Dispatch(ctx context.Context, path string, payload map[string]any) (string, error) {
	target, ok := r.Lookup(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}

	workflow, err := r.workflows.GetByID(ctx, target.WorkflowID)
	if err != nil {
		return "", fmt.Errorf("failed to load workflow for webhook %s: %w", path, err)
	}

	if !workflow.IsActive() {
		return "", fmt.Errorf("%w: %s", ErrWorkflowNotActive, target.WorkflowID)
	}

	r.logger.Info("Webhook fired", "path", path, "workflow_id", target.WorkflowID)

	return r.runner.StartRunDetached(ctx, target.WorkflowID, payload)
}
