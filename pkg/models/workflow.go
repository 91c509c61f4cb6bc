// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable; runs and dispatches allowed
	WorkflowStatusInactive WorkflowStatus = "inactive" // Editable only; new runs are rejected
)

// Workflow is a directed graph of typed nodes. A run may only be started
// while the workflow is active; that check belongs to the caller, not the
// engine.
type Workflow struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"      validate:"required,min=1"`
	Status    WorkflowStatus `json:"status"    validate:"required"`
	Nodes     []*Node        `json:"nodes"`
	Edges     []*Edge        `json:"edges"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive reports whether new runs may be started against the workflow.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}
