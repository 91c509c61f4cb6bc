package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/nodes/delay"
	"github.com/alik-grt/flowd/pkg/nodes/httprequest"
	"github.com/alik-grt/flowd/pkg/nodes/trigger"
	"github.com/alik-grt/flowd/pkg/protocol"
)

func newTestRegistry() *Registry {
	reg := NewRegistry(slog.Default())
	reg.Register(trigger.NewFactory())
	reg.Register(httprequest.NewFactory())
	reg.Register(delay.NewFactory(nil))

	return reg
}

func TestRegistry_HandlerFor(t *testing.T) {
	reg := newTestRegistry()

	handler, err := reg.HandlerFor(models.NodeTypeTrigger)
	require.NoError(t, err)
	assert.Implements(t, (*protocol.StepHandler)(nil), handler)

	_, err = reg.HandlerFor(models.NodeTypeAgent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_Registered(t *testing.T) {
	reg := newTestRegistry()

	assert.True(t, reg.Registered(models.NodeTypeHTTP))
	assert.False(t, reg.Registered(models.NodeTypeNote))
}

func TestRegistry_ValidateConfig(t *testing.T) {
	reg := newTestRegistry()

	// Schema-backed type rejects mistyped config values.
	err := reg.ValidateConfig(models.NodeTypeDelay, map[string]any{"delayMs": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delay")

	require.NoError(t, reg.ValidateConfig(models.NodeTypeDelay, map[string]any{"delayMs": 250}))

	// Nil config validates against the schema's empty object.
	require.NoError(t, reg.ValidateConfig(models.NodeTypeTrigger, nil))

	// Types without a schema accept anything.
	require.NoError(t, reg.ValidateConfig(models.NodeTypeHTTP, map[string]any{"whatever": []any{1}}))

	err = reg.ValidateConfig(models.NodeTypeAgent, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register(httprequest.NewFactory())
	reg.Register(httprequest.NewFactory())

	assert.True(t, reg.Registered(models.NodeTypeHTTP))
}
