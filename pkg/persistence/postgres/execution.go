package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
)

// ExecutionRepository handles execution-record storage in PostgreSQL.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// SaveExecution upserts an execution row.
func (er *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.Execution) error {
	input, err := marshalMap(execution.Input)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	output, err := marshalMap(execution.Output)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, input, output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			output = EXCLUDED.output,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`, execution.ID, execution.WorkflowID, execution.Status, input, output,
		execution.Error, execution.StartedAt, execution.FinishedAt)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

const executionColumns = "id, workflow_id, status, input, output, error, started_at, finished_at"

// ExecutionByID returns one execution record, or ErrExecutionNotFound.
func (er *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	row := er.db.QueryRowContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return execution, nil
}

// ExecutionsByWorkflow returns a workflow's runs, most recent first.
func (er *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := er.db.QueryContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE workflow_id = $1 ORDER BY started_at DESC",
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

// SaveExecutionNode upserts a per-node entry.
func (er *ExecutionRepository) SaveExecutionNode(ctx context.Context, node *models.ExecutionNode) error {
	input, err := marshalMap(node.Input)
	if err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	output, err := marshalMap(node.Output)
	if err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO execution_nodes (id, execution_id, node_id, status, input, output, error, duration_ms, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			input = EXCLUDED.input,
			output = EXCLUDED.output,
			error = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`, node.ID, node.ExecutionID, node.NodeID, node.Status, input, output,
		node.Error, node.DurationMs, node.StartedAt, node.FinishedAt)
	if err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	return nil
}

// ExecutionNodes returns a run's per-node entries in insertion order.
func (er *ExecutionRepository) ExecutionNodes(ctx context.Context, executionID string) ([]*models.ExecutionNode, error) {
	rows, err := er.db.QueryContext(ctx, `
		SELECT id, execution_id, node_id, status, input, output, error, duration_ms, started_at, finished_at
		FROM execution_nodes WHERE execution_id = $1 ORDER BY seq
	`, executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	nodes := make([]*models.ExecutionNode, 0)

	for rows.Next() {
		var (
			node   models.ExecutionNode
			input  []byte
			output []byte
		)

		err := rows.Scan(&node.ID, &node.ExecutionID, &node.NodeID, &node.Status,
			&input, &output, &node.Error, &node.DurationMs, &node.StartedAt, &node.FinishedAt)
		if err != nil {
			return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
		}

		if err := unmarshalMap(input, &node.Input); err != nil {
			return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
		}

		if err := unmarshalMap(output, &node.Output); err != nil {
			return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
		}

		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
	}

	return nodes, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution models.Execution
		input     []byte
		output    []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &execution.Status,
		&input, &output, &execution.Error, &execution.StartedAt, &execution.FinishedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalMap(input, &execution.Input); err != nil {
		return nil, fmt.Errorf("failed to decode execution input: %w", err)
	}

	if err := unmarshalMap(output, &execution.Output); err != nil {
		return nil, fmt.Errorf("failed to decode execution output: %w", err)
	}

	return &execution, nil
}

func marshalMap(value map[string]any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON column: %w", err)
	}

	return data, nil
}

func unmarshalMap(data []byte, target *map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}

	return nil
}
