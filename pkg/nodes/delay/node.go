// Package delay provides the pausing step handler.
package delay

import (
	"context"
	"log/slog"
	"time"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/protocol"
)

// Handler implements the delay step: it suspends the run for
// `config.delayMs` milliseconds, or until the `config.until` ISO timestamp,
// then returns the input unchanged. Past deadlines and missing config pass
// through immediately.
type Handler struct {
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewHandler creates a delay step handler. The notifier is pinged when a
// wait actually starts so the UI can show the node as in progress.
func NewHandler(notifier protocol.Notifier) *Handler {
	return &Handler{
		notifier: notifier,
		logger:   slog.With("module", "delay_node"),
	}
}

// Execute waits out the configured delay, honouring context cancellation.
func (h *Handler) Execute(ctx context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	if wait, ok := delayDuration(node); ok {
		h.logger.Info("Delaying", "node_id", node.ID, "duration", wait)
		h.notifier.NodeStatusChanged(ctx, node.WorkflowID, node.ID, models.NodeRunStatusProgress)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		h.logger.Info("Delay completed", "node_id", node.ID, "duration", wait)

		return input, nil
	}

	if until := node.ConfigString("until"); until != "" {
		deadline, err := time.Parse(time.RFC3339, until)
		if err != nil {
			h.logger.Warn("Invalid 'until' timestamp, returning input unchanged",
				"node_id", node.ID, "until", until, "error", err)

			return input, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			h.logger.Warn("Target time is in the past, skipping delay",
				"node_id", node.ID, "until", until)

			return input, nil
		}

		h.logger.Info("Waiting until deadline", "node_id", node.ID, "until", until, "duration", wait)
		h.notifier.NodeStatusChanged(ctx, node.WorkflowID, node.ID, models.NodeRunStatusProgress)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		return input, nil
	}

	h.logger.Warn("No valid delay configuration found, returning input unchanged", "node_id", node.ID)

	return input, nil
}

// delayDuration reads config.delayMs, tolerating the numeric types JSON
// decoding produces.
func delayDuration(node *models.Node) (time.Duration, bool) {
	if node.Config == nil {
		return 0, false
	}

	var ms float64

	switch v := node.Config["delayMs"].(type) {
	case float64:
		ms = v
	case int:
		ms = float64(v)
	case int64:
		ms = float64(v)
	default:
		return 0, false
	}

	if ms <= 0 {
		return 0, false
	}

	return time.Duration(ms) * time.Millisecond, true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
