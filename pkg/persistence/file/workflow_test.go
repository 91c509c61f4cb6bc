package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
)

func testWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "Order pipeline",
		Status: models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "trigger-1", Type: models.NodeTypeTrigger, Subtype: models.TriggerSubtypeWebhook, Name: "Start"},
			{ID: "http-1", Type: models.NodeTypeHTTP, Name: "Fetch", URL: "https://example.com"},
		},
		Edges: []*models.Edge{
			{ID: "edge-1", SourceNodeID: "trigger-1", TargetNodeID: "http-1"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestWorkflowRepository_SaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	workflow := testWorkflow("wf-1")
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "trigger-1", loaded.Nodes[0].ID)
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, "http-1", loaded.Edges[0].TargetNodeID)
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	require.NoError(t, repo.Save(ctx, testWorkflow("wf-1")))
	require.NoError(t, repo.Save(ctx, testWorkflow("wf-2")))

	workflows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)
}

func TestWorkflowRepository_GetAll_EmptyRoot(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	workflows, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	require.NoError(t, repo.Save(ctx, testWorkflow("wf-1")))
	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err := repo.GetByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_TriggerNodes(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	webhookFlow := testWorkflow("wf-webhook")
	require.NoError(t, repo.Save(ctx, webhookFlow))

	cronFlow := testWorkflow("wf-cron")
	cronFlow.Nodes[0].Subtype = models.TriggerSubtypeCron
	require.NoError(t, repo.Save(ctx, cronFlow))

	webhooks, err := repo.TriggerNodes(ctx, models.TriggerSubtypeWebhook)
	require.NoError(t, err)
	require.Len(t, webhooks, 1)
	assert.Equal(t, "wf-webhook", webhooks[0].WorkflowID)

	crons, err := repo.TriggerNodes(ctx, models.TriggerSubtypeCron)
	require.NoError(t, err)
	require.Len(t, crons, 1)
	assert.Equal(t, "wf-cron", crons[0].WorkflowID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	ctx := context.Background()

	healthy := NewPersistence(t.TempDir())
	require.NoError(t, healthy.HealthCheck(ctx))
	require.NoError(t, healthy.Close(ctx))

	missing := NewPersistence("/nonexistent/flowd-data")
	assert.Error(t, missing.HealthCheck(ctx))
}

func TestNewPersistence_StripsFileScheme(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)

	require.NoError(t, p.HealthCheck(context.Background()))
	assert.NotNil(t, p.WorkflowRepository())
	assert.NotNil(t, p.ExecutionRepository())
}
