// Package events defines the event types published over the run lifecycle.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/alik-grt/flowd/pkg/models"
)

type EventType string

// Topic is the single stream all run lifecycle events are published to.
const Topic = "flowd.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionCreatedEvent  EventType = "execution.created"
	ExecutionStartedEvent  EventType = "execution.started"
	ExecutionUpdatedEvent  EventType = "execution.updated"
	ExecutionFinishedEvent EventType = "execution.finished"
	ExecutionErrorEvent    EventType = "execution.error"

	// Per-node progress events.
	NodeStatusChangedEvent EventType = "node.status.changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates a base event with a fresh ID and timestamp.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// ExecutionCreated carries the full execution record before the run starts.
type ExecutionCreated struct {
	BaseEvent

	Execution *models.Execution `json:"execution"`
}

func (e ExecutionCreated) GetType() EventType {
	return ExecutionCreatedEvent
}

// ExecutionStarted marks the point the node loop begins.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionUpdated carries the execution record with its accumulated
// output after each node completes.
type ExecutionUpdated struct {
	BaseEvent

	Execution *models.Execution `json:"execution"`
}

func (e ExecutionUpdated) GetType() EventType {
	return ExecutionUpdatedEvent
}

// ExecutionFinished marks a completed run together with its final output.
type ExecutionFinished struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Output      map[string]any `json:"output,omitempty"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// ExecutionError marks a failed run.
type ExecutionError struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionError) GetType() EventType {
	return ExecutionErrorEvent
}

// NodeStatusChanged reports a node's run-state transition.
type NodeStatusChanged struct {
	BaseEvent

	NodeID string               `json:"node_id"`
	Status models.NodeRunStatus `json:"status"`
}

func (e NodeStatusChanged) GetType() EventType {
	return NodeStatusChangedEvent
}
