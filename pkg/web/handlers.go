// Package web provides the runner's admin HTTP endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/dukex/automation-runner/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// JobLister exposes the scheduler's registry.
type JobLister interface {
	Jobs() []scheduler.JobInfo
	Job(name string) (scheduler.JobInfo, bool)
}

type APIHandlers struct {
	runnerID string
	store    HealthChecker
	jobs     JobLister
}

func NewAPIHandlers(runnerID string, store HealthChecker, jobs JobLister) *APIHandlers {
	return &APIHandlers{
		runnerID: runnerID,
		store:    store,
		jobs:     jobs,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	err := h.store.HealthCheck(ctx)
	if err != nil {
		return unavailable(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"runner_id": h.runnerID,
		"checkers": fiber.Map{
			"store": "ok",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetJobs(c fiber.Ctx) error {
	jobs := h.jobs.Jobs()

	return c.JSON(fiber.Map{
		"runner_id":   h.runnerID,
		"jobs":        jobs,
		"total_count": len(jobs),
	})
}

func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Job name is required")
	}

	job, ok := h.jobs.Job(name)
	if !ok {
		return notFound(c, "Job not found")
	}

	return c.JSON(job)
}
