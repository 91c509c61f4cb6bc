package triggers

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alik-grt/flowd/pkg/models"
)

// WebhookRegistrar is the arming surface of the webhook registry.
type WebhookRegistrar interface {
	Register(path, workflowID, nodeID string)
	Unregister(workflowID, nodeID string)
	UnregisterWorkflow(workflowID string)
}

// CronScheduler is the arming surface of the cron scheduler.
type CronScheduler interface {
	Schedule(node *models.Node) error
	Unschedule(nodeID string)
	UnscheduleWorkflow(workflowID string)
}

// GenerateWebhookPath builds a fresh unguessable webhook path for a
// trigger node.
func GenerateWebhookPath(workflowID, nodeID string) string {
	short := strings.Split(uuid.New().String(), "-")[0]

	return fmt.Sprintf("webhook/%s/%s/%s", workflowID, nodeID, short)
}

// Lifecycle applies trigger registration side effects when workflow
// definitions change. Callers mutate node config through it, then persist
// the workflow themselves.
type Lifecycle struct {
	webhooks WebhookRegistrar
	crons    CronScheduler
	logger   *slog.Logger
}

// NewLifecycle creates a trigger lifecycle coordinator.
func NewLifecycle(webhooks WebhookRegistrar, crons CronScheduler, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{webhooks: webhooks, crons: crons, logger: logger}
}

// NodeCreated arms a freshly added trigger node. Webhook triggers get a
// generated path written into their config; cron triggers stay disarmed
// until explicitly armed.
func (l *Lifecycle) NodeCreated(node *models.Node) {
	if !node.IsTrigger() {
		return
	}

	if node.Subtype == models.TriggerSubtypeWebhook {
		l.ensureWebhook(node)
	}
}

// NodeUpdated reconciles trigger registrations after a node definition
// change.
func (l *Lifecycle) NodeUpdated(old, updated *models.Node) {
	wasWebhook := old.IsTrigger() && old.Subtype == models.TriggerSubtypeWebhook
	isWebhook := updated.IsTrigger() && updated.Subtype == models.TriggerSubtypeWebhook
	wasCron := old.IsTrigger() && old.Subtype == models.TriggerSubtypeCron
	isCron := updated.IsTrigger() && updated.Subtype == models.TriggerSubtypeCron

	if wasWebhook && !isWebhook {
		l.webhooks.Unregister(old.WorkflowID, old.ID)
		// The path is no longer addressable; keeping it persisted would
		// re-register it on the next startup scan.
		delete(updated.Config, models.ConfigKeyWebhookPath)
	}

	if isWebhook {
		l.ensureWebhook(updated)
	}

	if wasCron && !isCron {
		l.crons.Unschedule(old.ID)
	}

	if wasCron && isCron {
		oldExpression := old.ConfigString(models.ConfigKeyCronExpression)
		newExpression := updated.ConfigString(models.ConfigKeyCronExpression)

		// An expression change disarms the trigger; it fires on the new
		// schedule only after being re-armed.
		if oldExpression != newExpression {
			l.crons.Unschedule(updated.ID)

			if updated.Config == nil {
				updated.Config = map[string]any{}
			}

			updated.Config[models.ConfigKeyCronActive] = false
			l.logger.Info("Cron expression changed, trigger disarmed",
				"node_id", updated.ID, "workflow_id", updated.WorkflowID)
		}
	}
}

// NodeDeleted disarms a removed trigger node.
func (l *Lifecycle) NodeDeleted(node *models.Node) {
	if !node.IsTrigger() {
		return
	}

	switch node.Subtype {
	case models.TriggerSubtypeWebhook:
		l.webhooks.Unregister(node.WorkflowID, node.ID)
	case models.TriggerSubtypeCron:
		l.crons.Unschedule(node.ID)
	case models.TriggerSubtypeManual:
	}
}

// CronArmed schedules the job of a cron trigger that was just armed. The
// caller writes the armed flag into the node config and persists it.
func (l *Lifecycle) CronArmed(node *models.Node) error {
	return l.crons.Schedule(node)
}

// CronDisarmed stops the job of a cron trigger that was just disarmed.
func (l *Lifecycle) CronDisarmed(node *models.Node) {
	l.crons.Unschedule(node.ID)
}

// WorkflowActivated re-arms the cron triggers that were armed when the
// workflow went inactive. Webhook registrations survive deactivation, so
// only cron jobs need rebuilding here.
func (l *Lifecycle) WorkflowActivated(workflow *models.Workflow) {
	for _, node := range workflow.Nodes {
		if !node.IsTrigger() || node.Subtype != models.TriggerSubtypeCron {
			continue
		}

		if !node.ConfigBool(models.ConfigKeyCronActive) {
			continue
		}

		node.WorkflowID = workflow.ID

		if err := l.crons.Schedule(node); err != nil {
			l.logger.Warn("Failed to re-arm cron trigger on activation",
				"node_id", node.ID, "workflow_id", workflow.ID, "error", err)
		}
	}
}

// WorkflowDeactivated stops every cron job of the workflow. Webhook paths
// stay registered; dispatch rejects them while the workflow is inactive.
func (l *Lifecycle) WorkflowDeactivated(workflowID string) {
	l.crons.UnscheduleWorkflow(workflowID)
	l.logger.Info("Workflow deactivated, cron jobs stopped", "workflow_id", workflowID)
}

// WorkflowDeleted disarms everything the workflow had registered.
func (l *Lifecycle) WorkflowDeleted(workflowID string) {
	l.crons.UnscheduleWorkflow(workflowID)
	l.webhooks.UnregisterWorkflow(workflowID)
}

// ensureWebhook guarantees the node carries a webhook path and registers it.
func (l *Lifecycle) ensureWebhook(node *models.Node) {
	path := node.ConfigString(models.ConfigKeyWebhookPath)
	if path == "" {
		path = GenerateWebhookPath(node.WorkflowID, node.ID)

		if node.Config == nil {
			node.Config = map[string]any{}
		}

		node.Config[models.ConfigKeyWebhookPath] = path
	}

	l.webhooks.Register(path, node.WorkflowID, node.ID)
}
