// Package trigger provides the run-root step handler. Trigger nodes are a
// pure passthrough of the run input.
package trigger

import (
	"context"
	"time"

	"github.com/alik-grt/flowd/pkg/models"
)

// Handler implements the trigger step: no side effects, returns the run
// input wrapped in a status envelope. Cron-fired triggers additionally
// record the firing timestamp.
type Handler struct{}

// NewHandler creates a trigger step handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Execute returns {status: "ok", input}, plus triggeredAt for cron triggers.
func (h *Handler) Execute(_ context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	output := map[string]any{
		"status": "ok",
		"input":  input,
	}

	if node.Subtype == models.TriggerSubtypeCron {
		output["triggeredAt"] = time.Now().UTC().Format(time.RFC3339)
	}

	return output, nil
}
