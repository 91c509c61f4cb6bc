package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/persistence/file"
)

type fakeRunner struct {
	calls []string
	input map[string]any
}

func (f *fakeRunner) Run(_ context.Context, workflowID string, input map[string]any) (*models.Execution, error) {
	f.calls = append(f.calls, workflowID)
	f.input = input

	return &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusCompleted,
		Input:      input,
		StartedAt:  time.Now().UTC(),
	}, nil
}

func (f *fakeRunner) RunDetached(_ context.Context, workflowID string, input map[string]any) (string, error) {
	f.calls = append(f.calls, workflowID)
	f.input = input

	return uuid.New().String(), nil
}

type executionFixture struct {
	store   *file.Persistence
	runner  *fakeRunner
	service *Execution
}

func newExecutionFixture(t *testing.T) *executionFixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	runner := &fakeRunner{}

	return &executionFixture{
		store:   store,
		runner:  runner,
		service: NewExecution(store, runner, slog.Default()),
	}
}

func (f *executionFixture) saveWorkflow(t *testing.T, status models.WorkflowStatus) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "pipeline",
		Status: status,
		Nodes: []*models.Node{
			{ID: "trigger-1", Type: models.NodeTypeTrigger, Subtype: models.TriggerSubtypeManual},
		},
	}
	workflow.Nodes[0].WorkflowID = workflow.ID

	require.NoError(t, f.store.WorkflowRepository().Save(context.Background(), workflow))

	return workflow
}

func TestExecution_StartRun(t *testing.T) {
	fixture := newExecutionFixture(t)
	workflow := fixture.saveWorkflow(t, models.WorkflowStatusActive)

	execution, err := fixture.service.StartRun(context.Background(), workflow.ID, map[string]any{"order": "o-1"})
	require.NoError(t, err)
	require.NotNil(t, execution)

	assert.Equal(t, workflow.ID, execution.WorkflowID)
	assert.Equal(t, []string{workflow.ID}, fixture.runner.calls)
	assert.Equal(t, "o-1", fixture.runner.input["order"])
}

func TestExecution_StartRunDetached(t *testing.T) {
	fixture := newExecutionFixture(t)
	workflow := fixture.saveWorkflow(t, models.WorkflowStatusActive)

	executionID, err := fixture.service.StartRunDetached(context.Background(), workflow.ID, map[string]any{"order": "o-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, executionID)
	assert.Equal(t, []string{workflow.ID}, fixture.runner.calls)
}

func TestExecution_StartRunDetached_InactiveWorkflow(t *testing.T) {
	fixture := newExecutionFixture(t)
	workflow := fixture.saveWorkflow(t, models.WorkflowStatusInactive)

	_, err := fixture.service.StartRunDetached(context.Background(), workflow.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkflowNotActive)
	assert.Empty(t, fixture.runner.calls)
}

func TestExecution_StartRun_DefaultsNilInput(t *testing.T) {
	fixture := newExecutionFixture(t)
	workflow := fixture.saveWorkflow(t, models.WorkflowStatusActive)

	_, err := fixture.service.StartRun(context.Background(), workflow.ID, nil)
	require.NoError(t, err)
	assert.NotNil(t, fixture.runner.input, "runner should never see a nil input map")
}

func TestExecution_StartRun_InactiveWorkflow(t *testing.T) {
	fixture := newExecutionFixture(t)
	workflow := fixture.saveWorkflow(t, models.WorkflowStatusInactive)

	execution, err := fixture.service.StartRun(context.Background(), workflow.ID, nil)
	require.Error(t, err)
	assert.Nil(t, execution)
	assert.ErrorIs(t, err, ErrWorkflowNotActive)
	assert.True(t, IsConflictError(err))
	assert.Empty(t, fixture.runner.calls, "inactive workflows must never reach the runner")
}

func TestExecution_StartRun_UnknownWorkflow(t *testing.T) {
	fixture := newExecutionFixture(t)

	_, err := fixture.service.StartRun(context.Background(), "missing", nil)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Empty(t, fixture.runner.calls)
}

func TestExecution_Reads(t *testing.T) {
	fixture := newExecutionFixture(t)
	ctx := context.Background()

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, fixture.store.ExecutionRepository().SaveExecution(ctx, execution))

	entry := &models.ExecutionNode{
		ID:          "entry-1",
		ExecutionID: "exec-1",
		NodeID:      "trigger-1",
		Status:      models.NodeRunStatusPassed,
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, fixture.store.ExecutionRepository().SaveExecutionNode(ctx, entry))

	loaded, err := fixture.service.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", loaded.WorkflowID)

	history, err := fixture.service.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "exec-1", history[0].ID)

	entries, err := fixture.service.Entries(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "trigger-1", entries[0].NodeID)

	_, err = fixture.service.Get(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}
