// Package persistence provides the storage boundaries the runner reads and writes.
package persistence

import (
	"context"

	"github.com/dukex/automation-runner/pkg/models"
)

// RunRepository stores automation run records. Runs are created upstream and never deleted.
type RunRepository interface {
	RunByID(ctx context.Context, id int64) (*models.AutomationRun, error)
	// RunsByStatus returns runs in the given status ordered by priority, then age. Scheduled
	// runs whose scheduled_at lies in the future are left out.
	RunsByStatus(ctx context.Context, status models.RunStatus) ([]*models.AutomationRun, error)
	UpdateRun(ctx context.Context, run *models.AutomationRun) error
}

type ResultRepository interface {
	InsertResult(ctx context.Context, result *models.RunResult) error
	ResultsByRunID(ctx context.Context, runID int64) ([]*models.RunResult, error)
}

type ErrorRepository interface {
	InsertError(ctx context.Context, runError *models.RunError) error
	ErrorsByRunID(ctx context.Context, runID int64) ([]*models.RunError, error)
}

// SessionRepository resolves the browser session and sticky proxy of a user.
type SessionRepository interface {
	BrowserConfigByID(ctx context.Context, id int64) (*models.BrowserConfig, error)
	AssignedProxyByUserID(ctx context.Context, userID string) (*models.AssignedProxy, error)
	ProxyPoolEntryByID(ctx context.Context, id int64) (*models.ProxyPoolEntry, error)
	// UpdateBrowserConfigSessionStatus is idempotent.
	UpdateBrowserConfigSessionStatus(ctx context.Context, userID, tenant string, status models.SessionStatus) error
}

type Persistence interface {
	RunRepository() RunRepository
	ResultRepository() ResultRepository
	ErrorRepository() ErrorRepository
	SessionRepository() SessionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
