package workflow

import "github.com/alik-grt/flowd/pkg/models"

// normalizeHandle maps the legacy boolean edge handles onto branch tags.
func normalizeHandle(handle string) string {
	switch handle {
	case "true":
		return models.BranchCondition1
	case "false":
		return models.BranchCondition2
	default:
		return handle
	}
}

// edgeActive reports whether an edge carries data given its source node's
// output. Edges from non-branching nodes are always active; edges from a
// branching node are active only when their handle matches the branch tag
// the node produced. An edge without a handle never gates.
func edgeActive(edge *models.Edge, sourceOutput map[string]any) bool {
	tag, _ := sourceOutput[models.BranchResultKey].(string)
	if tag == "" || edge.SourceHandle == "" {
		return true
	}

	return normalizeHandle(edge.SourceHandle) == tag
}

// shouldExecute reports whether a node is activated: the trigger always
// runs, every other node runs when at least one incoming edge is active
// and its source has produced output. A non-trigger node without incoming
// edges has no data source and never executes, even when the walk reaches
// it as an upstream of a join.
func shouldExecute(node *models.Node, incoming []*models.Edge, outputs map[string]map[string]any, triggerID string) bool {
	if node.ID == triggerID {
		return true
	}

	if len(incoming) == 0 {
		return false
	}

	for _, edge := range incoming {
		sourceOutput, executed := outputs[edge.SourceNodeID]
		if executed && edgeActive(edge, sourceOutput) {
			return true
		}
	}

	return false
}

// nodeInput builds a node's input by shallow-merging the outputs of its
// active incoming edges in persisted edge order. Later edges win on key
// conflicts.
func nodeInput(incoming []*models.Edge, outputs map[string]map[string]any) map[string]any {
	input := map[string]any{}

	for _, edge := range incoming {
		sourceOutput, executed := outputs[edge.SourceNodeID]
		if !executed || !edgeActive(edge, sourceOutput) {
			continue
		}

		for key, value := range sourceOutput {
			input[key] = value
		}
	}

	return input
}
