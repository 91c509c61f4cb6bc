package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/alik-grt/flowd/pkg/cmd"
	"github.com/alik-grt/flowd/pkg/eventbus"
	"github.com/alik-grt/flowd/pkg/events"
	"github.com/alik-grt/flowd/pkg/log"
	"github.com/alik-grt/flowd/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowd",
		Usage:                 "Run the workflow engine and its API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (postgres://... or a file path)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.BoolFlag{
				Name:    "serial-runs",
				Usage:   "Serialize runs of the same workflow",
				Sources: cli.EnvVars("SERIAL_RUNS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export run and node spans over OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("flowd")
	logger.InfoContext(ctx, "Initializing flowd")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "flowd", logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := startEventMonitor(ctx, eventBus); err != nil {
		return fmt.Errorf("failed to start event monitor: %w", err)
	}

	config := APIConfig{
		SerialRuns: command.Bool("serial-runs"),
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "flowd")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		config.Tracer = tracer
	}

	api := NewAPI(logger, store, eventBus, config)

	return api.Start(ctx, command.Int("port"))
}

// startEventMonitor consumes the run notification stream and mirrors it
// into the log. It also keeps the bus subscription warm so external
// consumers see a live topic from startup.
func startEventMonitor(ctx context.Context, bus eventbus.EventBus) error {
	monitorLogger := log.WithModule("events")

	handler := func(ctx context.Context, event any) error {
		monitorLogger.DebugContext(ctx, "Run event", "event", fmt.Sprintf("%+v", event))

		return nil
	}

	eventTypes := []events.EventType{
		events.ExecutionCreatedEvent,
		events.ExecutionStartedEvent,
		events.ExecutionUpdatedEvent,
		events.ExecutionFinishedEvent,
		events.ExecutionErrorEvent,
		events.NodeStatusChangedEvent,
	}

	for _, eventType := range eventTypes {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
