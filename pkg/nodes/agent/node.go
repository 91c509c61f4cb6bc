// Package agent provides the AI agent placeholder step handler.
package agent

import (
	"context"
	"log/slog"

	"github.com/alik-grt/flowd/pkg/models"
)

// Handler acknowledges agent nodes without contacting any model provider.
// It echoes the node configuration and input so downstream steps can still
// reference them, and it never fails.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an agent step handler.
func NewHandler() *Handler {
	return &Handler{
		logger: slog.With("module", "agent_node"),
	}
}

// Execute returns an acknowledgement payload carrying the node config and input.
func (h *Handler) Execute(_ context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	h.logger.Info("Agent node acknowledged", "node_id", node.ID, "name", node.Name)

	config := map[string]any{}
	for key, value := range node.Config {
		config[key] = value
	}

	return map[string]any{
		"status": "ok",
		"config": config,
		"input":  input,
	}, nil
}
