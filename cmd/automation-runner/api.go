package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/automation-runner/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// API is the runner's admin HTTP server.
type API struct {
	logger   *slog.Logger
	runnerID string
	store    web.HealthChecker
	jobs     web.JobLister
	app      *fiber.App
}

func NewAPI(log *slog.Logger, runnerID string, store web.HealthChecker, jobs web.JobLister) *API {
	api := &API{
		logger:   log.With("module", "admin_api"),
		runnerID: runnerID,
		store:    store,
		jobs:     jobs,
	}
	api.app = api.App()

	return api
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.runnerID, a.store, a.jobs)

	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, handlers.HealthCheck)

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automation Runner")
	})

	app.Get("/health", handlers.HealthCheck)

	j := app.Group("/jobs")
	j.Get("/", handlers.GetJobs)
	j.Get("/:name", handlers.GetJob)

	return app
}

// Start serves until Shutdown is called.
func (a *API) Start(port int) error {
	a.logger.Info("Starting admin API", "port", port)

	return a.app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.app.ShutdownWithContext(ctx)
}
