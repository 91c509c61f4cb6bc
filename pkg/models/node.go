package models

// NodeType identifies the handler a node is dispatched to.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeHTTP      NodeType = "http"
	NodeTypeTransform NodeType = "transform"
	NodeTypeAgent     NodeType = "agent"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeIf        NodeType = "if"
	NodeTypeParent    NodeType = "parent" // Layout grouping, no execution semantics
	NodeTypeNote      NodeType = "note"   // Canvas annotation, no execution semantics
)

// TriggerSubtype narrows how a trigger node is fired.
type TriggerSubtype string

const (
	TriggerSubtypeManual  TriggerSubtype = "manual"
	TriggerSubtypeWebhook TriggerSubtype = "webhook"
	TriggerSubtypeCron    TriggerSubtype = "cron"
)

// Config keys recognized on trigger nodes.
const (
	ConfigKeyWebhookPath    = "webhookPath"
	ConfigKeyCronExpression = "cronExpression"
	ConfigKeyCronActive     = "cronActive"
)

// BranchResultKey is the reserved output key an `if` node uses to carry its
// branch tag. It is consumed only by the engine's edge activation check and
// must not be treated as ordinary workflow data.
const BranchResultKey = "__ifResult"

// Branch tags produced by `if` nodes.
const (
	BranchCondition1 = "condition1"
	BranchCondition2 = "condition2"
	BranchElse       = "else"
)

// Node is one typed step in a workflow graph. Config semantics depend on
// Type/Subtype; URL, Method, Headers and BodyTemplate apply to http nodes,
// Template to transform nodes.
type Node struct {
	ID           string            `json:"id"                     validate:"required"`
	WorkflowID   string            `json:"workflow_id"            validate:"required"`
	Type         NodeType          `json:"type"                   validate:"required"`
	Subtype      TriggerSubtype    `json:"subtype,omitempty"`
	Name         string            `json:"name,omitempty"`
	Config       map[string]any    `json:"config,omitempty"`
	URL          string            `json:"url,omitempty"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate string            `json:"body_template,omitempty"`
	Template     map[string]any    `json:"template,omitempty"`
	PositionX    int               `json:"position_x"`
	PositionY    int               `json:"position_y"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	ParentID     string            `json:"parent_id,omitempty"`
}

// IsExecutable reports whether the node participates in execution at all.
// Parent and note nodes are pure layout and must be skipped by the engine.
func (n *Node) IsExecutable() bool {
	return n.Type != NodeTypeParent && n.Type != NodeTypeNote
}

// IsTrigger reports whether the node roots a run.
func (n *Node) IsTrigger() bool {
	return n.Type == NodeTypeTrigger
}

// ConfigString returns a string config value, empty if absent or mistyped.
func (n *Node) ConfigString(key string) string {
	if n.Config == nil {
		return ""
	}

	s, _ := n.Config[key].(string)

	return s
}

// ConfigBool returns a bool config value, false if absent or mistyped.
func (n *Node) ConfigBool(key string) bool {
	if n.Config == nil {
		return false
	}

	b, _ := n.Config[key].(bool)

	return b
}

// Edge connects two nodes within one workflow. SourceHandle is only
// meaningful when the source node is an `if` node: it names the branch
// outcome that activates this edge.
type Edge struct {
	ID           string `json:"id"`
	WorkflowID   string `json:"workflow_id"    validate:"required"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}
