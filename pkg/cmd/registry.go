package cmd

import (
	"log/slog"

	"github.com/alik-grt/flowd/pkg/nodes/agent"
	"github.com/alik-grt/flowd/pkg/nodes/conditional"
	"github.com/alik-grt/flowd/pkg/nodes/delay"
	"github.com/alik-grt/flowd/pkg/nodes/httprequest"
	"github.com/alik-grt/flowd/pkg/nodes/transform"
	"github.com/alik-grt/flowd/pkg/nodes/trigger"
	"github.com/alik-grt/flowd/pkg/protocol"
	"github.com/alik-grt/flowd/pkg/registry"
)

// NewRegistry builds a handler registry with every built-in node type
// registered.
func NewRegistry(logger *slog.Logger, notifier protocol.Notifier) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(trigger.NewFactory())
	reg.Register(httprequest.NewFactory())
	reg.Register(transform.NewFactory())
	reg.Register(conditional.NewFactory())
	reg.Register(agent.NewFactory())
	reg.Register(delay.NewFactory(notifier))

	return reg
}
