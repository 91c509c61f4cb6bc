package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
)

// Runner executes a workflow end to end and returns its execution record.
// RunDetached starts the run, returns its execution id and lets the run
// finish in the background. Satisfied by the workflow engine.
type Runner interface {
	Run(ctx context.Context, workflowID string, input map[string]any) (*models.Execution, error)
	RunDetached(ctx context.Context, workflowID string, input map[string]any) (string, error)
}

// Execution starts workflow runs and serves execution history reads. It is
// the single gate that enforces the active-workflow rule, so every run
// source (manual, webhook, cron) goes through it.
type Execution struct {
	persistence persistence.Persistence
	runner      Runner
	logger      *slog.Logger
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence, runner Runner, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: persistence,
		runner:      runner,
		logger:      logger.With("module", "execution_service"),
	}
}

// StartRun runs a workflow with the given trigger input. It rejects
// workflows that are not active; a failed run still returns the execution
// record alongside the error.
func (e *Execution) StartRun(ctx context.Context, workflowID string, input map[string]any) (*models.Execution, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.IsActive() {
		return nil, &ServiceError{
			Op:      "start_run",
			Message: fmt.Sprintf("workflow %s is not active", workflowID),
			Err:     ErrWorkflowNotActive,
		}
	}

	if input == nil {
		input = map[string]any{}
	}

	e.logger.Info("Starting workflow run", "workflow_id", workflowID)

	return e.runner.Run(ctx, workflowID, input)
}

// StartRunDetached starts a run without waiting for it to finish and
// returns the id of the new execution. Trigger sources use it so the
// triggering caller is acknowledged as soon as the run exists.
func (e *Execution) StartRunDetached(ctx context.Context, workflowID string, input map[string]any) (string, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	if !workflow.IsActive() {
		return "", &ServiceError{
			Op:      "start_run",
			Message: fmt.Sprintf("workflow %s is not active", workflowID),
			Err:     ErrWorkflowNotActive,
		}
	}

	if input == nil {
		input = map[string]any{}
	}

	e.logger.Info("Starting detached workflow run", "workflow_id", workflowID)

	return e.runner.RunDetached(ctx, workflowID, input)
}

// Get returns one execution record by ID.
func (e *Execution) Get(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := e.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// ListByWorkflow returns the execution history of a workflow, most recent
// first.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	executions, err := e.persistence.ExecutionRepository().ExecutionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Entries returns the per-node records of one execution in the order the
// nodes were started.
func (e *Execution) Entries(ctx context.Context, executionID string) ([]*models.ExecutionNode, error) {
	entries, err := e.persistence.ExecutionRepository().ExecutionNodes(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution nodes: %w", err)
	}

	return entries, nil
}
