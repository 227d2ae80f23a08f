package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/automation-runner/pkg/scheduler"
	"github.com/dukex/automation-runner/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err error
}

func (s stubStore) HealthCheck(context.Context) error {
	return s.err
}

func setupTestApp(t *testing.T, store web.HealthChecker) (*fiber.App, *scheduler.Scheduler) {
	t.Helper()

	jobs := scheduler.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handlers := web.NewAPIHandlers("runner-1", store, jobs)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/jobs", handlers.GetJobs)
	app.Get("/jobs/:name", handlers.GetJob)

	return app, jobs
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		store          stubStore
		expectedStatus int
		validate       func(t *testing.T, body map[string]any)
	}{
		{
			name:           "healthy store",
			store:          stubStore{},
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, body map[string]any) {
				t.Helper()
				assert.Equal(t, "healthy", body["status"])
				assert.Equal(t, "runner-1", body["runner_id"])
			},
		},
		{
			name:           "store unreachable",
			store:          stubStore{err: errors.New("dial tcp: connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
			validate: func(t *testing.T, body map[string]any) {
				t.Helper()
				assert.Equal(t, "dependency_unavailable", body["type"])
				assert.Equal(t, "/health", body["instance"])
				assert.InDelta(t, float64(http.StatusServiceUnavailable), body["status"], 0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t, tt.store)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			tt.validate(t, decodeBody(t, resp))
		})
	}
}

func TestAPIHandlers_Jobs(t *testing.T) {
	t.Parallel()

	app, jobs := setupTestApp(t, stubStore{})

	require.NoError(t, jobs.Schedule("find-scheduled-runs", scheduler.Job{CronTime: "@every 20s", OnTick: func(context.Context) {}}))
	require.NoError(t, jobs.Schedule("automation-run-12", scheduler.Job{RunOnce: true, OnTick: func(context.Context) {}}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.InDelta(t, 2.0, body["total_count"], 0)

	list, ok := body["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	first, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "automation-run-12", first["name"])
	assert.Equal(t, true, first["run_once"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/jobs/find-scheduled-runs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	job := decodeBody(t, resp)
	assert.Equal(t, "@every 20s", job["cron_time"])
	assert.Equal(t, false, job["running"])
}

func TestAPIHandlers_JobNotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, stubStore{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/automation-run-404", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "not_found", body["type"])
	assert.Equal(t, "Job not found", body["detail"])
}
