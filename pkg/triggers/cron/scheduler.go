// Package cron schedules cron-fired workflow triggers.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/triggers"
)

type job struct {
	entryID    cron.EntryID
	workflowID string
}

// Scheduler maintains one cron job per armed cron trigger node. Jobs
// re-check the workflow and node state at fire time, so a disarm that
// raced a tick never starts a run.
type Scheduler struct {
	workflows persistence.WorkflowRepository
	runner    triggers.RunStarter
	logger    *slog.Logger
	cron      *cron.Cron

	mu   sync.Mutex
	jobs map[string]job
}

// NewScheduler creates a stopped scheduler. Call Start to begin firing.
func NewScheduler(workflows persistence.WorkflowRepository, runner triggers.RunStarter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		workflows: workflows,
		runner:    runner,
		logger:    logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: make(map[string]job),
	}
}

// Init schedules every persisted cron trigger that is armed. Called once
// at startup.
func (s *Scheduler) Init(ctx context.Context) error {
	nodes, err := s.workflows.TriggerNodes(ctx, models.TriggerSubtypeCron)
	if err != nil {
		return fmt.Errorf("failed to load cron triggers: %w", err)
	}

	scheduled := 0

	for _, node := range nodes {
		if !node.ConfigBool(models.ConfigKeyCronActive) {
			continue
		}

		if err := s.Schedule(node); err != nil {
			s.logger.Warn("Failed to schedule persisted cron trigger",
				"node_id", node.ID, "workflow_id", node.WorkflowID, "error", err)

			continue
		}

		scheduled++
	}

	s.logger.Info("Cron scheduler initialized", "scheduled", scheduled)

	return nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule arms a cron trigger node, replacing any existing job for it.
func (s *Scheduler) Schedule(node *models.Node) error {
	expression := node.ConfigString(models.ConfigKeyCronExpression)
	if expression == "" {
		return fmt.Errorf("cron trigger %s has no expression", node.ID)
	}

	if _, err := cron.ParseStandard(expression); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[node.ID]; ok {
		s.cron.Remove(existing.entryID)
	}

	workflowID := node.WorkflowID
	nodeID := node.ID

	entryID, err := s.cron.AddFunc(expression, func() {
		s.fire(workflowID, nodeID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for node %s: %w", node.ID, err)
	}

	s.jobs[node.ID] = job{entryID: entryID, workflowID: workflowID}
	s.logger.Info("Cron trigger scheduled",
		"node_id", node.ID, "workflow_id", workflowID, "expression", expression)

	return nil
}

// Unschedule disarms a cron trigger node. Unknown nodes are a no-op.
func (s *Scheduler) Unschedule(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[nodeID]; ok {
		s.cron.Remove(existing.entryID)
		delete(s.jobs, nodeID)
		s.logger.Info("Cron trigger unscheduled", "node_id", nodeID)
	}
}

// UnscheduleWorkflow disarms every cron job belonging to a workflow.
func (s *Scheduler) UnscheduleWorkflow(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for nodeID, existing := range s.jobs {
		if existing.workflowID == workflowID {
			s.cron.Remove(existing.entryID)
			delete(s.jobs, nodeID)
			s.logger.Info("Cron trigger unscheduled", "node_id", nodeID, "workflow_id", workflowID)
		}
	}
}

// Scheduled reports whether a node currently has an armed job.
func (s *Scheduler) Scheduled(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[nodeID]

	return ok
}

// fire starts a run for a ticking job after re-checking that the workflow
// is still active and the node still armed.
func (s *Scheduler) fire(workflowID, nodeID string) {
	ctx := context.Background()
	logger := s.logger.With("workflow_id", workflowID, "node_id", nodeID)

	workflow, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		logger.Warn("Cron fired for missing workflow, unscheduling", "error", err)
		s.Unschedule(nodeID)

		return
	}

	if !workflow.IsActive() {
		logger.Info("Cron fired for inactive workflow, skipping")

		return
	}

	armed := false

	for _, node := range workflow.Nodes {
		if node.ID == nodeID && node.ConfigBool(models.ConfigKeyCronActive) {
			armed = true

			break
		}
	}

	if !armed {
		logger.Info("Cron fired for disarmed trigger, unscheduling")
		s.Unschedule(nodeID)

		return
	}

	logger.Info("Cron trigger fired")

	input := map[string]any{
		"triggeredBy": "cron",
		"triggeredAt": time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := s.runner.StartRun(ctx, workflowID, input); err != nil {
		logger.Error("Cron-triggered run failed to start", "error", err)
	}
}
