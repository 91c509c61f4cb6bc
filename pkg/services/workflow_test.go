package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/nodes/agent"
	"github.com/alik-grt/flowd/pkg/nodes/conditional"
	"github.com/alik-grt/flowd/pkg/nodes/delay"
	"github.com/alik-grt/flowd/pkg/nodes/httprequest"
	"github.com/alik-grt/flowd/pkg/nodes/transform"
	"github.com/alik-grt/flowd/pkg/nodes/trigger"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/persistence/file"
	"github.com/alik-grt/flowd/pkg/registry"
	"github.com/alik-grt/flowd/pkg/triggers"
)

type fakeRegistrar struct {
	mu         sync.Mutex
	registered map[string]string // path -> workflowID/nodeID
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[string]string)}
}

func (f *fakeRegistrar) Register(path, workflowID, nodeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[path] = workflowID + "/" + nodeID
}

func (f *fakeRegistrar) Unregister(workflowID, nodeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for path, target := range f.registered {
		if target == workflowID+"/"+nodeID {
			delete(f.registered, path)
		}
	}
}

func (f *fakeRegistrar) UnregisterWorkflow(workflowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for path, target := range f.registered {
		if len(target) > len(workflowID) && target[:len(workflowID)] == workflowID {
			delete(f.registered, path)
		}
	}
}

func (f *fakeRegistrar) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.registered)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]string // nodeID -> workflowID
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]string)}
}

func (f *fakeScheduler) Schedule(node *models.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[node.ID] = node.WorkflowID

	return nil
}

func (f *fakeScheduler) Unschedule(nodeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, nodeID)
}

func (f *fakeScheduler) UnscheduleWorkflow(workflowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for nodeID, wfID := range f.scheduled {
		if wfID == workflowID {
			delete(f.scheduled, nodeID)
		}
	}
}

func (f *fakeScheduler) has(nodeID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.scheduled[nodeID]

	return ok
}

type workflowFixture struct {
	service   *Workflow
	registrar *fakeRegistrar
	scheduler *fakeScheduler
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	logger := slog.Default()
	registrar := newFakeRegistrar()
	scheduler := newFakeScheduler()
	lifecycle := triggers.NewLifecycle(registrar, scheduler, logger)
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.Register(trigger.NewFactory())
	reg.Register(httprequest.NewFactory())
	reg.Register(transform.NewFactory())
	reg.Register(conditional.NewFactory())
	reg.Register(agent.NewFactory())
	reg.Register(delay.NewFactory(nil))

	return &workflowFixture{
		service:   NewWorkflow(store, lifecycle, reg, logger),
		registrar: registrar,
		scheduler: scheduler,
	}
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:   "orders",
		Status: models.WorkflowStatusActive,
		Nodes: []*models.Node{
			{ID: "trigger-1", Type: models.NodeTypeTrigger, Subtype: models.TriggerSubtypeManual},
			{ID: "http-1", Type: models.NodeTypeHTTP, URL: "https://example.com"},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "trigger-1", TargetNodeID: "http-1"},
		},
	}
}

func TestWorkflow_Save_AssignsDefaults(t *testing.T) {
	fixture := newWorkflowFixture(t)

	saved, err := fixture.service.Save(context.Background(), validWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	for _, node := range saved.Nodes {
		assert.Equal(t, saved.ID, node.WorkflowID)
	}

	for _, edge := range saved.Edges {
		assert.Equal(t, saved.ID, edge.WorkflowID)
	}

	loaded, err := fixture.service.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", loaded.Name)
}

func TestWorkflow_Save_ValidationFailures(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Save(ctx, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	noName := validWorkflow()
	noName.Name = ""
	_, err = fixture.service.Save(ctx, noName)
	assert.ErrorIs(t, err, ErrWorkflowNameRequired)

	noNodes := validWorkflow()
	noNodes.Nodes = nil
	noNodes.Edges = nil
	_, err = fixture.service.Save(ctx, noNodes)
	assert.ErrorIs(t, err, ErrNodesRequired)

	duplicate := validWorkflow()
	duplicate.Nodes = append(duplicate.Nodes, &models.Node{ID: "http-1", Type: models.NodeTypeHTTP})
	_, err = fixture.service.Save(ctx, duplicate)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	danglingEdge := validWorkflow()
	danglingEdge.Edges = append(danglingEdge.Edges, &models.Edge{
		ID: "e2", SourceNodeID: "http-1", TargetNodeID: "ghost",
	})
	_, err = fixture.service.Save(ctx, danglingEdge)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestWorkflow_Save_RejectsConfigFailingNodeSchema(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	badDelay := validWorkflow()
	badDelay.Nodes = append(badDelay.Nodes, &models.Node{
		ID:     "delay-1",
		Type:   models.NodeTypeDelay,
		Config: map[string]any{"delayMs": "soon"},
	})
	badDelay.Edges = append(badDelay.Edges, &models.Edge{
		ID: "e2", SourceNodeID: "http-1", TargetNodeID: "delay-1",
	})

	_, err := fixture.service.Save(ctx, badDelay)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.True(t, IsValidationError(err))

	goodDelay := validWorkflow()
	goodDelay.Nodes = append(goodDelay.Nodes, &models.Node{
		ID:     "delay-1",
		Type:   models.NodeTypeDelay,
		Config: map[string]any{"delayMs": 250},
	})
	goodDelay.Edges = append(goodDelay.Edges, &models.Edge{
		ID: "e2", SourceNodeID: "http-1", TargetNodeID: "delay-1",
	})

	_, err = fixture.service.Save(ctx, goodDelay)
	require.NoError(t, err)
}

func TestWorkflow_Save_RegistersNewWebhookTrigger(t *testing.T) {
	fixture := newWorkflowFixture(t)

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeWebhook

	saved, err := fixture.service.Save(context.Background(), workflow)
	require.NoError(t, err)

	path := saved.Nodes[0].ConfigString(models.ConfigKeyWebhookPath)
	assert.NotEmpty(t, path, "webhook trigger should get a generated path")
	assert.Equal(t, 1, fixture.registrar.count())

	// The generated path survives the save round trip.
	loaded, err := fixture.service.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Nodes[0].ConfigString(models.ConfigKeyWebhookPath))
}

func TestWorkflow_Save_RemovedTriggerIsDisarmed(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeWebhook

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)
	require.Equal(t, 1, fixture.registrar.count())

	saved.Nodes = []*models.Node{
		{ID: "http-1", Type: models.NodeTypeHTTP, URL: "https://example.com"},
	}
	saved.Edges = nil

	_, err = fixture.service.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 0, fixture.registrar.count())
}

func TestWorkflow_SetStatus(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeCron
	workflow.Nodes[0].Config = map[string]any{
		models.ConfigKeyCronExpression: "* * * * *",
		models.ConfigKeyCronActive:     true,
	}

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)

	_, err = fixture.service.SetStatus(ctx, saved.ID, models.WorkflowStatusInactive)
	require.NoError(t, err)
	assert.False(t, fixture.scheduler.has("trigger-1"), "deactivation stops cron jobs")

	reactivated, err := fixture.service.SetStatus(ctx, saved.ID, models.WorkflowStatusActive)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive())
	assert.True(t, fixture.scheduler.has("trigger-1"), "activation re-arms armed cron triggers")

	_, err = fixture.service.SetStatus(ctx, saved.ID, "paused")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = fixture.service.SetStatus(ctx, "missing", models.WorkflowStatusActive)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_Delete(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeWebhook

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)

	require.NoError(t, fixture.service.Delete(ctx, saved.ID))
	assert.Equal(t, 0, fixture.registrar.count())

	_, err = fixture.service.Get(ctx, saved.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = fixture.service.Delete(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_ArmAndDisarmCron(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeCron
	workflow.Nodes[0].Config = map[string]any{
		models.ConfigKeyCronExpression: "*/5 * * * *",
	}

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)
	require.False(t, fixture.scheduler.has("trigger-1"), "cron triggers start disarmed")

	node, err := fixture.service.ArmCron(ctx, saved.ID, "trigger-1")
	require.NoError(t, err)
	assert.True(t, node.ConfigBool(models.ConfigKeyCronActive))
	assert.True(t, fixture.scheduler.has("trigger-1"))

	// The armed flag is persisted.
	loaded, err := fixture.service.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Nodes[0].ConfigBool(models.ConfigKeyCronActive))

	node, err = fixture.service.DisarmCron(ctx, saved.ID, "trigger-1")
	require.NoError(t, err)
	assert.False(t, node.ConfigBool(models.ConfigKeyCronActive))
	assert.False(t, fixture.scheduler.has("trigger-1"))
}

func TestWorkflow_ArmCron_Rejections(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeCron

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)

	// No cron expression configured.
	_, err = fixture.service.ArmCron(ctx, saved.ID, "trigger-1")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Not a cron trigger.
	_, err = fixture.service.ArmCron(ctx, saved.ID, "http-1")
	assert.ErrorIs(t, err, ErrNotCronTrigger)

	// Unknown node.
	_, err = fixture.service.ArmCron(ctx, saved.ID, "ghost")
	assert.True(t, persistence.IsNodeNotFound(err))
}

func TestWorkflow_WebhookPath(t *testing.T) {
	fixture := newWorkflowFixture(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.Nodes[0].Subtype = models.TriggerSubtypeWebhook

	saved, err := fixture.service.Save(ctx, workflow)
	require.NoError(t, err)

	path, err := fixture.service.WebhookPath(ctx, saved.ID, "trigger-1")
	require.NoError(t, err)
	assert.Equal(t, saved.Nodes[0].ConfigString(models.ConfigKeyWebhookPath), path)

	_, err = fixture.service.WebhookPath(ctx, saved.ID, "http-1")
	assert.ErrorIs(t, err, ErrNotWebhookTrigger)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	fixture := newWorkflowFixture(t)

	message, healthy := fixture.service.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.Contains(t, message, "healthy")
}
