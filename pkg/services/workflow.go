package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/registry"
	"github.com/alik-grt/flowd/pkg/triggers"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow implements workflow definition management. Saving a workflow
// reconciles trigger registrations against the previously persisted
// version, so webhook paths and cron jobs always match what is stored.
type Workflow struct {
	persistence persistence.Persistence
	lifecycle   *triggers.Lifecycle
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. The registry supplies the
// per-type config schemas enforced on save.
func NewWorkflow(persistence persistence.Persistence, lifecycle *triggers.Lifecycle, registry *registry.Registry, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		lifecycle:   lifecycle,
		registry:    registry,
		validator:   validator.New(),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all persisted workflows.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Get returns one workflow by ID.
func (w *Workflow) Get(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Save validates and persists a workflow, then reconciles trigger
// registrations against the previous version. New workflows get an ID and
// timestamps assigned here.
func (w *Workflow) Save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, &ServiceError{Op: "save_workflow", Err: ErrWorkflowNil}
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusInactive
	}

	previous, err := w.persistence.WorkflowRepository().GetByID(ctx, workflow.ID)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		return nil, fmt.Errorf("failed to load previous workflow version: %w", err)
	}

	now := time.Now().UTC()

	workflow.CreatedAt = now
	if previous != nil {
		workflow.CreatedAt = previous.CreatedAt
	}

	workflow.UpdatedAt = now

	for _, node := range workflow.Nodes {
		node.WorkflowID = workflow.ID
	}

	for _, edge := range workflow.Edges {
		edge.WorkflowID = workflow.ID
	}

	if err := w.validate(workflow); err != nil {
		return nil, err
	}

	w.reconcileTriggers(previous, workflow)

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	// A full replace may flip the status as well.
	if previous != nil && previous.Status != workflow.Status {
		switch workflow.Status {
		case models.WorkflowStatusActive:
			w.lifecycle.WorkflowActivated(workflow)
		case models.WorkflowStatusInactive:
			w.lifecycle.WorkflowDeactivated(workflow.ID)
		}
	}

	w.logger.Info("Workflow saved", "workflow_id", workflow.ID, "name", workflow.Name)

	return workflow, nil
}

// Delete removes a workflow and disarms all of its triggers.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	if err := w.persistence.WorkflowRepository().Delete(ctx, id); err != nil {
		return err
	}

	w.lifecycle.WorkflowDeleted(id)
	w.logger.Info("Workflow deleted", "workflow_id", id)

	return nil
}

// SetStatus transitions a workflow between active and inactive. Cron jobs
// are stopped on deactivation and re-armed on activation.
func (w *Workflow) SetStatus(ctx context.Context, id string, status models.WorkflowStatus) (*models.Workflow, error) {
	if status != models.WorkflowStatusActive && status != models.WorkflowStatusInactive {
		return nil, &ServiceError{
			Op:      "set_workflow_status",
			Message: fmt.Sprintf("unknown status %q", status),
			Err:     ErrInvalidRequest,
		}
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status == status {
		return workflow, nil
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	switch status {
	case models.WorkflowStatusActive:
		w.lifecycle.WorkflowActivated(workflow)
	case models.WorkflowStatusInactive:
		w.lifecycle.WorkflowDeactivated(workflow.ID)
	}

	w.logger.Info("Workflow status changed", "workflow_id", id, "status", status)

	return workflow, nil
}

// ArmCron enables a cron trigger node and schedules its job. The node must
// be a cron trigger with a cron expression configured.
func (w *Workflow) ArmCron(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	return w.setCronArmed(ctx, workflowID, nodeID, true)
}

// DisarmCron disables a cron trigger node and stops its job.
func (w *Workflow) DisarmCron(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	return w.setCronArmed(ctx, workflowID, nodeID, false)
}

// WebhookPath returns the registered webhook path of a trigger node,
// generating and persisting one if the node does not carry a path yet.
func (w *Workflow) WebhookPath(ctx context.Context, workflowID, nodeID string) (string, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	node := findNode(workflow, nodeID)
	if node == nil {
		return "", persistence.NewWorkflowError("webhook_path", workflowID, persistence.ErrNodeNotFound)
	}

	if !node.IsTrigger() || node.Subtype != models.TriggerSubtypeWebhook {
		return "", &ServiceError{
			Op:      "webhook_path",
			Message: fmt.Sprintf("node %s is not a webhook trigger", nodeID),
			Err:     ErrNotWebhookTrigger,
		}
	}

	if path := node.ConfigString(models.ConfigKeyWebhookPath); path != "" {
		return path, nil
	}

	node.WorkflowID = workflow.ID
	w.lifecycle.NodeCreated(node)

	workflow.UpdatedAt = time.Now().UTC()
	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return "", fmt.Errorf("failed to persist webhook path: %w", err)
	}

	return node.ConfigString(models.ConfigKeyWebhookPath), nil
}

func (w *Workflow) setCronArmed(ctx context.Context, workflowID, nodeID string, armed bool) (*models.Node, error) {
	op := "disarm_cron"
	if armed {
		op = "arm_cron"
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	node := findNode(workflow, nodeID)
	if node == nil {
		return nil, persistence.NewWorkflowError(op, workflowID, persistence.ErrNodeNotFound)
	}

	if !node.IsTrigger() || node.Subtype != models.TriggerSubtypeCron {
		return nil, &ServiceError{
			Op:      op,
			Message: fmt.Sprintf("node %s is not a cron trigger", nodeID),
			Err:     ErrNotCronTrigger,
		}
	}

	if armed && node.ConfigString(models.ConfigKeyCronExpression) == "" {
		return nil, &ServiceError{
			Op:      op,
			Message: "cron trigger has no cron expression",
			Err:     ErrInvalidRequest,
		}
	}

	if node.Config == nil {
		node.Config = map[string]any{}
	}

	node.Config[models.ConfigKeyCronActive] = armed
	node.WorkflowID = workflow.ID

	if armed {
		if err := w.lifecycle.CronArmed(node); err != nil {
			return nil, &ServiceError{Op: op, Message: err.Error(), Err: ErrInvalidRequest}
		}
	} else {
		w.lifecycle.CronDisarmed(node)
	}

	workflow.UpdatedAt = time.Now().UTC()
	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.Info("Cron trigger updated",
		"workflow_id", workflowID, "node_id", nodeID, "armed", armed)

	return node, nil
}

// validate enforces structural requirements before anything is persisted.
func (w *Workflow) validate(workflow *models.Workflow) error {
	if workflow.Name == "" {
		return &ServiceError{Op: "save_workflow", Err: ErrWorkflowNameRequired}
	}

	if len(workflow.Nodes) == 0 {
		return &ServiceError{Op: "save_workflow", Err: ErrNodesRequired}
	}

	if err := w.validator.Struct(workflow); err != nil {
		return &ServiceError{Op: "save_workflow", Message: err.Error(), Err: ErrInvalidRequest}
	}

	seen := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if err := w.validator.Struct(node); err != nil {
			return &ServiceError{Op: "save_workflow", Message: err.Error(), Err: ErrInvalidRequest}
		}

		// Layout nodes never execute and carry no registered schema.
		if node.IsExecutable() {
			if err := w.registry.ValidateConfig(node.Type, node.Config); err != nil {
				return &ServiceError{Op: "save_workflow", Message: err.Error(), Err: ErrInvalidRequest}
			}
		}

		if seen[node.ID] {
			return &ServiceError{
				Op:      "save_workflow",
				Message: fmt.Sprintf("duplicate node id %s", node.ID),
				Err:     ErrInvalidRequest,
			}
		}

		seen[node.ID] = true
	}

	for _, edge := range workflow.Edges {
		if !seen[edge.SourceNodeID] || !seen[edge.TargetNodeID] {
			return &ServiceError{
				Op:      "save_workflow",
				Message: fmt.Sprintf("edge %s references an unknown node", edge.ID),
				Err:     ErrInvalidRequest,
			}
		}
	}

	return nil
}

// reconcileTriggers compares the previous node set with the incoming one
// and applies trigger lifecycle side effects for every difference.
func (w *Workflow) reconcileTriggers(previous, updated *models.Workflow) {
	var oldNodes map[string]*models.Node
	if previous != nil {
		oldNodes = make(map[string]*models.Node, len(previous.Nodes))
		for _, node := range previous.Nodes {
			oldNodes[node.ID] = node
		}
	}

	for _, node := range updated.Nodes {
		old, existed := oldNodes[node.ID]
		if existed {
			w.lifecycle.NodeUpdated(old, node)

			delete(oldNodes, node.ID)
		} else {
			w.lifecycle.NodeCreated(node)
		}
	}

	for _, removed := range oldNodes {
		w.lifecycle.NodeDeleted(removed)
	}
}

func findNode(workflow *models.Workflow, nodeID string) *models.Node {
	for _, node := range workflow.Nodes {
		if node.ID == nodeID {
			return node
		}
	}

	return nil
}
