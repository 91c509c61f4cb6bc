// Package graph computes the executable ordering of a workflow graph.
package graph

import (
	"errors"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/models"
)

// ErrCycleDetected is returned when a cycle is reachable from the root node.
var ErrCycleDetected = errors.New("circular dependency detected in workflow")

// TopologicalOrder returns every node reachable from rootID, each emitted
// after all of its reachable upstream sources. Traversal is depth-first:
// incoming edges' sources are visited before the node itself, then outgoing
// targets. Edge iteration follows persisted insertion order, so ties are
// broken deterministically. Nodes unreachable from the root are returned as
// orphans; they are excluded from the order but never fail the sort.
func TopologicalOrder(nodes []*models.Node, edges []*models.Edge, rootID string) ([]*models.Node, []*models.Node, error) {
	byID := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	incoming := make(map[string][]*models.Edge)
	outgoing := make(map[string][]*models.Edge)

	for _, edge := range edges {
		if _, ok := byID[edge.SourceNodeID]; !ok {
			slog.Warn("Edge references missing source node, skipping",
				"edge_id", edge.ID, "source_node_id", edge.SourceNodeID)

			continue
		}

		if _, ok := byID[edge.TargetNodeID]; !ok {
			slog.Warn("Edge references missing target node, skipping",
				"edge_id", edge.ID, "target_node_id", edge.TargetNodeID)

			continue
		}

		incoming[edge.TargetNodeID] = append(incoming[edge.TargetNodeID], edge)
		outgoing[edge.SourceNodeID] = append(outgoing[edge.SourceNodeID], edge)
	}

	order, err := traverse(byID, incoming, outgoing, rootID)
	if err != nil {
		return nil, nil, err
	}

	var orphans []*models.Node

	if len(order) < len(nodes) {
		sorted := make(map[string]bool, len(order))
		for _, node := range order {
			sorted[node.ID] = true
		}

		for _, node := range nodes {
			if !sorted[node.ID] {
				orphans = append(orphans, node)
			}
		}
	}

	return order, orphans, nil
}

// traversal phases for one stack frame.
const (
	phaseEnter = iota
	phaseIncoming
	phaseOutgoing
)

type frame struct {
	id    string
	phase int
	next  int
}

// traverse is the explicit-stack equivalent of the recursive visit: a frame
// on the stack with phaseEnter revisiting a node still in `visiting` means
// the walk returned to a node before finishing it, which is a cycle.
func traverse(
	byID map[string]*models.Node,
	incoming, outgoing map[string][]*models.Edge,
	rootID string,
) ([]*models.Node, error) {
	var order []*models.Node

	visited := make(map[string]bool, len(byID))
	visiting := make(map[string]bool)

	stack := []frame{{id: rootID}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]

		switch f.phase {
		case phaseEnter:
			if visiting[f.id] {
				return nil, ErrCycleDetected
			}

			if visited[f.id] {
				stack = stack[:len(stack)-1]

				continue
			}

			if _, ok := byID[f.id]; !ok {
				slog.Warn("Referenced node not found in workflow, skipping", "node_id", f.id)

				stack = stack[:len(stack)-1]

				continue
			}

			visiting[f.id] = true
			f.phase = phaseIncoming
		case phaseIncoming:
			in := incoming[f.id]
			if f.next < len(in) {
				source := in[f.next].SourceNodeID
				f.next++

				stack = append(stack, frame{id: source})

				continue
			}

			delete(visiting, f.id)
			visited[f.id] = true
			order = append(order, byID[f.id])

			f.phase = phaseOutgoing
			f.next = 0
		case phaseOutgoing:
			out := outgoing[f.id]
			if f.next < len(out) {
				target := out[f.next].TargetNodeID
				f.next++

				// A target still in `visiting` is an ancestor whose incoming
				// walk led here; it finishes up the stack on its own and must
				// not be re-entered (a diamond join is not a cycle).
				if !visited[target] && !visiting[target] {
					stack = append(stack, frame{id: target})
				}

				continue
			}

			stack = stack[:len(stack)-1]
		}
	}

	return order, nil
}
