package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
)

// ExecutionRepository handles execution-record file operations. Run records
// live under executions/, per-node entries under execution_nodes/ keyed by
// execution ID so a run's entries stay in insertion order.
type ExecutionRepository struct {
	root string
	mu   sync.RWMutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) executionsDir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) nodesDir() string {
	return filepath.Join(er.root, "execution_nodes")
}

func (er *ExecutionRepository) executionPath(id string) string {
	return filepath.Join(er.executionsDir(), id+".json")
}

func (er *ExecutionRepository) nodesPath(executionID string) string {
	return filepath.Join(er.nodesDir(), executionID+".json")
}

// SaveExecution writes an execution record, creating or replacing it.
func (er *ExecutionRepository) SaveExecution(_ context.Context, execution *models.Execution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(er.executionsDir(), dirPermissions); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	if err := os.WriteFile(er.executionPath(execution.ID), data, 0o600); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// ExecutionByID returns one execution record, or ErrExecutionNotFound.
func (er *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	data, err := os.ReadFile(er.executionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns a workflow's runs, most recent first.
func (er *ExecutionRepository) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entries, err := fs.Glob(os.DirFS(er.executionsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(entries))

	for _, entry := range entries {
		id := strings.TrimSuffix(entry, ".json")

		data, err := os.ReadFile(er.executionPath(id))
		if err != nil {
			return nil, persistence.NewExecutionError("ExecutionsByWorkflow", id, err)
		}

		var execution models.Execution
		if err := json.Unmarshal(data, &execution); err != nil {
			return nil, persistence.NewExecutionError("ExecutionsByWorkflow", id, err)
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, &execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// SaveExecutionNode upserts a per-node entry in its execution's entry list.
func (er *ExecutionRepository) SaveExecutionNode(_ context.Context, node *models.ExecutionNode) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(er.nodesDir(), dirPermissions); err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	nodes, err := er.loadNodes(node.ExecutionID)
	if err != nil {
		return err
	}

	replaced := false

	for i, existing := range nodes {
		if existing.ID == node.ID {
			nodes[i] = node
			replaced = true

			break
		}
	}

	if !replaced {
		nodes = append(nodes, node)
	}

	data, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	if err := os.WriteFile(er.nodesPath(node.ExecutionID), data, 0o600); err != nil {
		return persistence.NewExecutionError("SaveExecutionNode", node.ExecutionID, err)
	}

	return nil
}

// ExecutionNodes returns a run's per-node entries in insertion order.
func (er *ExecutionRepository) ExecutionNodes(_ context.Context, executionID string) ([]*models.ExecutionNode, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	return er.loadNodes(executionID)
}

func (er *ExecutionRepository) loadNodes(executionID string) ([]*models.ExecutionNode, error) {
	data, err := os.ReadFile(er.nodesPath(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionNode{}, nil
		}

		return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
	}

	var nodes []*models.ExecutionNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, persistence.NewExecutionError("ExecutionNodes", executionID, err)
	}

	return nodes, nil
}
