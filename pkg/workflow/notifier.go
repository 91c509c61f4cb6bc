package workflow

import (
	"context"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/eventbus"
	"github.com/alik-grt/flowd/pkg/events"
	"github.com/alik-grt/flowd/pkg/models"
)

// EventNotifier publishes run progress to the event bus. Publish failures
// are logged and swallowed; a broken channel must never fail a run.
type EventNotifier struct {
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

// NewEventNotifier creates a notifier backed by the event bus.
func NewEventNotifier(bus eventbus.EventPublisher, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{bus: bus, logger: logger}
}

func (n *EventNotifier) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if err := n.bus.Publish(ctx, workflowID, event); err != nil {
		n.logger.Warn("Failed to publish event",
			"event_type", event.GetType(), "workflow_id", workflowID, "error", err)
	}
}

func (n *EventNotifier) NodeStatusChanged(ctx context.Context, workflowID, nodeID string, status models.NodeRunStatus) {
	n.publish(ctx, workflowID, events.NodeStatusChanged{
		BaseEvent: events.NewBaseEvent(events.NodeStatusChangedEvent, workflowID),
		NodeID:    nodeID,
		Status:    status,
	})
}

func (n *EventNotifier) ExecutionCreated(ctx context.Context, workflowID string, execution *models.Execution) {
	n.publish(ctx, workflowID, events.ExecutionCreated{
		BaseEvent: events.NewBaseEvent(events.ExecutionCreatedEvent, workflowID),
		Execution: execution,
	})
}

func (n *EventNotifier) ExecutionStarted(ctx context.Context, workflowID, executionID string) {
	n.publish(ctx, workflowID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflowID),
		ExecutionID: executionID,
	})
}

func (n *EventNotifier) ExecutionUpdated(ctx context.Context, workflowID string, execution *models.Execution) {
	n.publish(ctx, workflowID, events.ExecutionUpdated{
		BaseEvent: events.NewBaseEvent(events.ExecutionUpdatedEvent, workflowID),
		Execution: execution,
	})
}

func (n *EventNotifier) ExecutionFinished(ctx context.Context, workflowID, executionID string, output map[string]any) {
	n.publish(ctx, workflowID, events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, workflowID),
		ExecutionID: executionID,
		Output:      output,
	})
}

func (n *EventNotifier) ExecutionError(ctx context.Context, workflowID, executionID, message string) {
	n.publish(ctx, workflowID, events.ExecutionError{
		BaseEvent:   events.NewBaseEvent(events.ExecutionErrorEvent, workflowID),
		ExecutionID: executionID,
		Error:       message,
	})
}
