// Package main provides the flowd server: the workflow API with the
// execution engine, webhook dispatch and cron scheduling embedded.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/alik-grt/flowd/pkg/cmd"
	"github.com/alik-grt/flowd/pkg/eventbus"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/services"
	"github.com/alik-grt/flowd/pkg/triggers"
	"github.com/alik-grt/flowd/pkg/triggers/cron"
	"github.com/alik-grt/flowd/pkg/triggers/webhook"
	"github.com/alik-grt/flowd/pkg/web"
	"github.com/alik-grt/flowd/pkg/workflow"
)

// API wires the full server: engine, services, trigger registries and the
// fiber app.
type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	engine      *workflow.Engine
	scheduler   *cron.Scheduler
	webhooks    *webhook.Registry
	app         *fiber.App
}

// APIConfig carries the runtime options of the server.
type APIConfig struct {
	SerialRuns bool
	Tracer     trace.Tracer
}

// NewAPI assembles the server from its infrastructure pieces.
func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	config APIConfig,
) *API {
	notifier := workflow.NewEventNotifier(eventBus, logger)
	registry := cmd.NewRegistry(logger, notifier)

	opts := []workflow.Option{workflow.WithSerialPerWorkflow(config.SerialRuns)}
	if config.Tracer != nil {
		opts = append(opts, workflow.WithTracer(config.Tracer))
	}

	engine := workflow.NewEngine(store, registry, notifier, logger, opts...)

	executionService := services.NewExecution(store, engine, logger)
	webhooks := webhook.NewRegistry(store.WorkflowRepository(), executionService, logger)
	scheduler := cron.NewScheduler(store.WorkflowRepository(), executionService, logger)
	lifecycle := triggers.NewLifecycle(webhooks, scheduler, logger)
	workflowService := services.NewWorkflow(store, lifecycle, registry, logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowd")
	})

	web.NewAPIHandlers(workflowService, executionService, webhooks).Register(app)

	return &API{
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		engine:      engine,
		scheduler:   scheduler,
		webhooks:    webhooks,
		app:         app,
	}
}

// Start arms the persisted triggers and serves until ctx is cancelled, then
// drains the cron scheduler.
func (a *API) Start(ctx context.Context, port int) error {
	if err := a.webhooks.Init(ctx); err != nil {
		return err
	}

	if err := a.scheduler.Init(ctx); err != nil {
		return err
	}

	a.scheduler.Start()

	err := a.app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		GracefulContext: ctx,
	})

	if stopErr := a.scheduler.Stop(context.Background()); stopErr != nil {
		a.logger.Error("Failed to stop cron scheduler", "error", stopErr)
	}

	return err
}
