package models

import "time"

// ExecutionStatus is the run-level state machine: running moves to
// completed or failed. Stopped is reserved for externally cancelled runs
// and is never produced by the engine itself.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
)

// NodeRunStatus is the per-node state machine: idle → progress →
// {passed | error}, terminal. Persisted rows never revert; the idle reset
// broadcast at run start is a UI notification only.
type NodeRunStatus string

const (
	NodeRunStatusIdle     NodeRunStatus = "idle"
	NodeRunStatusProgress NodeRunStatus = "progress"
	NodeRunStatusPassed   NodeRunStatus = "passed"
	NodeRunStatusError    NodeRunStatus = "error"
)

// Execution is one end-to-end run of a workflow graph. Output accumulates
// per-node outputs keyed by node id as the run progresses, so partial
// output is visible mid-run and preserved on failure.
type Execution struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	Status     ExecutionStatus `json:"status"`
	Input      map[string]any  `json:"input,omitempty"`
	Output     map[string]any  `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// ExecutionNode records a single node execution within a run.
type ExecutionNode struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	Status      NodeRunStatus  `json:"status"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}
