package workflow

import "errors"

// ErrNoTriggerNode is returned when a run is requested for a workflow
// whose graph contains no trigger node to root the ordering.
var ErrNoTriggerNode = errors.New("workflow has no trigger node")

// IsNoTriggerNode checks if an error indicates a missing trigger node.
func IsNoTriggerNode(err error) bool {
	return errors.Is(err, ErrNoTriggerNode)
}
