// Package web provides the HTTP surface of the workflow engine: workflow
// CRUD, run triggering, trigger arming and the webhook dispatch endpoint.
package web

import "github.com/alik-grt/flowd/pkg/models"

// SaveWorkflowRequest is the request body for creating or replacing a
// workflow definition. Nodes and edges are always submitted whole; there
// is no partial graph update.
type SaveWorkflowRequest struct {
	Name   string                `json:"name"   validate:"required,min=1"`
	Status models.WorkflowStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Nodes  []*models.Node        `json:"nodes"  validate:"required,min=1"`
	Edges  []*models.Edge        `json:"edges"`
}

// RunWorkflowRequest is the request body for a manual run. Input becomes
// the trigger node's input.
type RunWorkflowRequest struct {
	Input map[string]any `json:"input"`
}

// SetStatusRequest is the request body for a workflow status transition.
type SetStatusRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"required,oneof=active inactive"`
}

// WebhookInfoResponse carries the dispatch path of a webhook trigger.
type WebhookInfoResponse struct {
	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`
	Path       string `json:"path"`
}
