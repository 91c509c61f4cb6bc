// Package persistence provides the data storage abstraction layer for
// workflows and execution records.
package persistence

import (
	"context"

	"github.com/alik-grt/flowd/pkg/models"
)

// Persistence is the storage entry point implementations expose.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. A workflow carries its
// nodes and edges; the edge slice order is preserved exactly as saved,
// since input merging depends on it.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// TriggerNodes returns every trigger node of the given subtype across
	// all workflows, for startup registration of webhooks and cron jobs.
	TriggerNodes(ctx context.Context, subtype models.TriggerSubtype) ([]*models.Node, error)
}

// ExecutionRepository stores run records and their per-node entries.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	SaveExecutionNode(ctx context.Context, node *models.ExecutionNode) error
	ExecutionNodes(ctx context.Context, executionID string) ([]*models.ExecutionNode, error)
}
