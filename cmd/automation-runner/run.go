package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/automation-runner/pkg/automation"
	"github.com/dukex/automation-runner/pkg/cmd"
	"github.com/dukex/automation-runner/pkg/log"
	"github.com/dukex/automation-runner/pkg/otelhelper"
	"github.com/dukex/automation-runner/pkg/runner"
	"github.com/dukex/automation-runner/pkg/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort            = 9094
	defaultLeaseTTL        = 30 * time.Minute
	defaultShutdownTimeout = 30 * time.Second
	serviceName            = "automation-runner"
)

func RunCommand() *cli.Command {
	flags := []cli.Flag{
		databaseURLFlag(),
		&cli.StringFlag{
			Name:    "runner-id",
			Aliases: []string{"id"},
			Usage:   "Custom runner ID (auto-generated if not provided)",
			Sources: cli.EnvVars("RUNNER_ID"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for distributed session leases (in-process leases when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:     "automation-url",
			Usage:    "Base URL of the browser automation service",
			Required: true,
			Sources:  cli.EnvVars("AUTOMATION_URL"),
		},
		&cli.StringFlag{
			Name:    "scheduled-poll",
			Usage:   "Cron time of the scheduled runs poll",
			Value:   runner.DefaultScheduledPoll,
			Sources: cli.EnvVars("SCHEDULED_POLL"),
		},
		&cli.StringFlag{
			Name:    "retrying-poll",
			Usage:   "Cron time of the retrying runs poll",
			Value:   runner.DefaultRetryingPoll,
			Sources: cli.EnvVars("RETRYING_POLL"),
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Retries before a run that keeps reporting errors is failed (0 = unlimited)",
			Value:   runner.DefaultMaxRetries,
			Sources: cli.EnvVars("MAX_RETRIES"),
		},
		&cli.DurationFlag{
			Name:    "lease-ttl",
			Usage:   "Expiry of a browser session lease",
			Value:   defaultLeaseTTL,
			Sources: cli.EnvVars("LEASE_TTL"),
		},
		&cli.DurationFlag{
			Name:    "action-timeout",
			Usage:   "Timeout of a single automation action (0 = none)",
			Value:   runner.DefaultActionTimeout,
			Sources: cli.EnvVars("ACTION_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "shutdown-timeout",
			Usage:   "How long to wait for executing runs on shutdown",
			Value:   defaultShutdownTimeout,
			Sources: cli.EnvVars("SHUTDOWN_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port of the admin API",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Poll for runs and execute them",
		Flags:   append(flags, logFlags()...),
		Action:  run,
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	runnerID := command.String("runner-id")
	if runnerID == "" {
		runnerID = "runner-" + uuid.New().String()[:8]
	}

	logger := log.WithModule(serviceName).With("runner_id", runnerID)

	config := runner.Config{
		RunnerID:      runnerID,
		ScheduledPoll: command.String("scheduled-poll"),
		RetryingPoll:  command.String("retrying-poll"),
		MaxRetries:    command.Int("max-retries"),
		ActionTimeout: command.Duration("action-timeout"),
	}

	err := config.Validate(validator.New(validator.WithRequiredStructEnabled()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing automation runner")

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, serviceName, command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		err := shutdownTracer(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := store.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	locker, closeLocker, err := cmd.NewLocker(ctx, logger, command.String("redis-url"), command.Duration("lease-ttl"))
	if err != nil {
		return err
	}

	defer func() {
		err := closeLocker()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close lease client", "error", err)
		}
	}()

	factory, err := automation.NewHTTPFactory(logger, command.String("automation-url"), nil)
	if err != nil {
		return err
	}

	jobs := scheduler.New(logger)
	executor := runner.NewExecutor(logger, store, factory, locker, eventBus, tracer, config)
	poller := runner.NewPoller(logger, jobs, store.RunRepository(), executor, config)

	err = poller.Start()
	if err != nil {
		return err
	}

	jobs.Start()

	api := NewAPI(logger, runnerID, store, jobs)
	apiErr := make(chan error, 1)

	go func() {
		apiErr <- api.Start(command.Int("port"))
	}()

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutting down automation runner")
	case err = <-apiErr:
		logger.ErrorContext(ctx, "Admin API stopped", "error", err)
	}

	return shutdown(context.WithoutCancel(ctx), logger, command.Duration("shutdown-timeout"), api, jobs, err)
}

func shutdown(ctx context.Context, logger *slog.Logger, timeout time.Duration, api *API, jobs *scheduler.Scheduler, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := api.Shutdown(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to stop admin API", "error", err)
	}

	stopErr := jobs.StopJobs(ctx)
	if stopErr != nil {
		logger.WarnContext(ctx, "Executing runs were interrupted", "error", stopErr)
	}

	logger.InfoContext(ctx, "Automation runner stopped")

	return errors.Join(cause, stopErr)
}
