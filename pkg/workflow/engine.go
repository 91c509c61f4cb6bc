// Package workflow implements the execution engine: it orders a workflow
// graph from its trigger, runs each activated node through its handler and
// records the run as it progresses.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/alik-grt/flowd/pkg/graph"
	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/otelhelper"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/protocol"
	"github.com/alik-grt/flowd/pkg/registry"
)

// Engine runs workflow graphs. It is safe for concurrent use; runs of the
// same workflow proceed in parallel unless WithSerialPerWorkflow is set.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	notifier    protocol.Notifier
	logger      *slog.Logger
	tracer      trace.Tracer
	serial      bool
	locks       sync.Map
}

// Option configures an Engine.
type Option func(*Engine)

// WithSerialPerWorkflow makes runs of the same workflow wait on each other
// instead of interleaving.
func WithSerialPerWorkflow(enabled bool) Option {
	return func(e *Engine) {
		e.serial = enabled
	}
}

// WithTracer attaches a tracer for per-run and per-node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates an execution engine.
func NewEngine(p persistence.Persistence, r *registry.Registry, n protocol.Notifier, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		persistence: p,
		registry:    r,
		notifier:    n,
		logger:      logger,
		tracer:      noop.NewTracerProvider().Tracer("workflow"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// runState carries one run from record creation to its terminal status.
type runState struct {
	workflow  *models.Workflow
	execution *models.Execution
	input     map[string]any
	logger    *slog.Logger
}

// Run executes one end-to-end run of the workflow and returns its record.
// The record is non-nil whenever an execution was created, including failed
// runs; the error then describes what stopped the run.
func (e *Engine) Run(ctx context.Context, workflowID string, input map[string]any) (*models.Execution, error) {
	unlock := e.lock(workflowID)
	defer unlock()

	state, err := e.begin(ctx, workflowID, input)
	if err != nil {
		return nil, err
	}

	return state.execution, e.execute(ctx, state)
}

// RunDetached creates and persists the execution record, then finishes the
// run on a background goroutine. The caller gets the execution id back
// immediately and can follow the run through the execution repository.
func (e *Engine) RunDetached(ctx context.Context, workflowID string, input map[string]any) (string, error) {
	state, err := e.begin(ctx, workflowID, input)
	if err != nil {
		return "", err
	}

	executionID := state.execution.ID

	go func() {
		unlock := e.lock(workflowID)
		defer unlock()

		// The originating request may be gone by the time the run finishes.
		if err := e.execute(context.Background(), state); err != nil {
			state.logger.Error("Detached run failed", "error", err)
		}
	}()

	return executionID, nil
}

// begin loads the workflow and persists the running execution record.
func (e *Engine) begin(ctx context.Context, workflowID string, input map[string]any) (*runState, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if input == nil {
		input = map[string]any{}
	}

	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusRunning,
		Input:      input,
		Output:     map[string]any{},
		StartedAt:  time.Now().UTC(),
	}

	if err := e.executions().SaveExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	e.notifier.ExecutionCreated(ctx, workflowID, execution)

	return &runState{
		workflow:  workflow,
		execution: execution,
		input:     input,
		logger:    e.logger.With("workflow_id", workflowID, "execution_id", execution.ID),
	}, nil
}

// execute walks the ordered graph and drives the execution record to a
// terminal status.
func (e *Engine) execute(ctx context.Context, state *runState) error {
	workflow, execution, logger := state.workflow, state.execution, state.logger
	workflowID := workflow.ID
	input := state.input

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	logger.Info("Starting workflow run")

	trigger := findTrigger(workflow.Nodes)
	if trigger == nil {
		return e.fail(ctx, span, logger, execution, ErrNoTriggerNode)
	}

	order, orphans, err := graph.TopologicalOrder(workflow.Nodes, workflow.Edges, trigger.ID)
	if err != nil {
		return e.fail(ctx, span, logger, execution, err)
	}

	if len(orphans) > 0 {
		logger.Warn("Workflow has nodes unreachable from the trigger", "count", len(orphans))
	}

	incoming := incomingEdges(workflow.Edges)

	// UI reset: every node in the run starts out idle.
	for _, node := range order {
		if node.IsExecutable() {
			e.notifier.NodeStatusChanged(ctx, workflowID, node.ID, models.NodeRunStatusIdle)
		}
	}

	e.notifier.ExecutionStarted(ctx, workflowID, execution.ID)

	outputs := make(map[string]map[string]any, len(order))

	for _, node := range order {
		if !node.IsExecutable() {
			continue
		}

		if !shouldExecute(node, incoming[node.ID], outputs, trigger.ID) {
			logger.Debug("Node not activated, skipping", "node_id", node.ID)

			continue
		}

		var nodeIn map[string]any
		if node.ID == trigger.ID {
			nodeIn = input
		} else {
			nodeIn = nodeInput(incoming[node.ID], outputs)
		}

		node.WorkflowID = workflowID

		output, err := e.runNode(ctx, logger, execution, node, nodeIn)
		if err != nil {
			// A structured result from a failed node is still worth keeping.
			if output != nil {
				execution.Output[node.ID] = output
			}

			return e.fail(ctx, span, logger, execution,
				fmt.Errorf("node %s failed: %w", node.ID, err))
		}

		outputs[node.ID] = output
		execution.Output[node.ID] = output

		if err := e.executions().SaveExecution(ctx, execution); err != nil {
			logger.Warn("Failed to persist execution progress", "error", err)
		}

		e.notifier.ExecutionUpdated(ctx, workflowID, execution)
	}

	finishedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.FinishedAt = &finishedAt

	if err := e.executions().SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist completed execution: %w", err)
	}

	e.notifier.ExecutionFinished(ctx, workflowID, execution.ID, execution.Output)
	logger.Info("Workflow run completed", "duration", finishedAt.Sub(execution.StartedAt))

	return nil
}

// runNode brackets one node execution: progress entry, handler call,
// terminal entry with duration.
func (e *Engine) runNode(ctx context.Context, logger *slog.Logger, execution *models.Execution, node *models.Node, input map[string]any) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		attribute.String(otelhelper.NodeNameKey, node.Name),
	)
	defer span.End()

	logger = logger.With("node_id", node.ID, "node_type", node.Type)
	logger.Info("Executing node")

	entry := &models.ExecutionNode{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		Status:      models.NodeRunStatusProgress,
		Input:       input,
		StartedAt:   time.Now().UTC(),
	}

	if err := e.executions().SaveExecutionNode(ctx, entry); err != nil {
		logger.Warn("Failed to persist node entry", "error", err)
	}

	e.notifier.NodeStatusChanged(ctx, execution.WorkflowID, node.ID, models.NodeRunStatusProgress)

	var (
		output map[string]any
		err    error
	)

	handler, err := e.registry.HandlerFor(node.Type)
	if err == nil {
		output, err = handler.Execute(ctx, node, input)
	}

	finishedAt := time.Now().UTC()
	entry.FinishedAt = &finishedAt
	entry.DurationMs = finishedAt.Sub(entry.StartedAt).Milliseconds()
	entry.Output = output

	if err != nil {
		entry.Status = models.NodeRunStatusError
		entry.Error = err.Error()
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))
		logger.Error("Node failed", "error", err, "duration_ms", entry.DurationMs)
	} else {
		entry.Status = models.NodeRunStatusPassed
		logger.Info("Node passed", "duration_ms", entry.DurationMs)
	}

	if saveErr := e.executions().SaveExecutionNode(ctx, entry); saveErr != nil {
		logger.Warn("Failed to persist node entry", "error", saveErr)
	}

	e.notifier.NodeStatusChanged(ctx, execution.WorkflowID, node.ID, entry.Status)

	return output, err
}

// fail finalizes a run in the failed state and reports the cause.
func (e *Engine) fail(ctx context.Context, span trace.Span, logger *slog.Logger, execution *models.Execution, cause error) error {
	otelhelper.SetError(span, cause)

	finishedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()
	execution.FinishedAt = &finishedAt

	if err := e.executions().SaveExecution(ctx, execution); err != nil {
		logger.Warn("Failed to persist failed execution", "error", err)
	}

	e.notifier.ExecutionError(ctx, execution.WorkflowID, execution.ID, cause.Error())
	logger.Error("Workflow run failed", "error", cause)

	return cause
}

func (e *Engine) executions() persistence.ExecutionRepository {
	return e.persistence.ExecutionRepository()
}

// lock serializes runs per workflow when the engine is configured for it.
func (e *Engine) lock(workflowID string) func() {
	if !e.serial {
		return func() {}
	}

	value, _ := e.locks.LoadOrStore(workflowID, &sync.Mutex{})
	mu, _ := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func findTrigger(nodes []*models.Node) *models.Node {
	for _, node := range nodes {
		if node.IsTrigger() {
			return node
		}
	}

	return nil
}

// incomingEdges groups edges by target, preserving persisted order.
func incomingEdges(edges []*models.Edge) map[string][]*models.Edge {
	incoming := make(map[string][]*models.Edge)
	for _, edge := range edges {
		incoming[edge.TargetNodeID] = append(incoming[edge.TargetNodeID], edge)
	}

	return incoming
}
