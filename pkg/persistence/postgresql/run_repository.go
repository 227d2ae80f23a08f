package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
)

const runColumns = `id, tenant, user_id, browser_config_id, type, payload, status, scheduled_at, started_at,
	finished_at, run_duration, retry_count, triggered_by, priority, created_at, updated_at`

// RunRepository handles automation run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Create inserts a new run. Runs are normally created by upstream services; this exists
// for seeding and tests.
func (r *RunRepository) Create(ctx context.Context, run *models.AutomationRun) error {
	if run.Status == "" {
		run.Status = models.RunStatusScheduled
	}

	if run.TriggeredBy == "" {
		run.TriggeredBy = models.TriggeredByManual
	}

	query := `
		INSERT INTO browser_automation_runs (tenant, user_id, browser_config_id, type, payload, status,
			scheduled_at, retry_count, triggered_by, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()), NOW())
		RETURNING id, created_at, updated_at
	`

	var createdAt sql.NullTime
	if !run.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: run.CreatedAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		run.Tenant,
		run.UserID,
		run.BrowserConfigID,
		run.Type,
		nullString(run.Payload),
		run.Status,
		run.ScheduledAt,
		run.RetryCount,
		run.TriggeredBy,
		run.Priority,
		createdAt,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("CreateRun", "run", "", err)
	}

	return nil
}

func (r *RunRepository) RunByID(ctx context.Context, id int64) (*models.AutomationRun, error) {
	query := `SELECT ` + runColumns + ` FROM browser_automation_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("RunByID", "run", strconv.FormatInt(id, 10), persistence.ErrRunNotFound)
		}

		return nil, persistence.NewStoreError("RunByID", "run", strconv.FormatInt(id, 10), err)
	}

	return run, nil
}

func (r *RunRepository) RunsByStatus(ctx context.Context, status models.RunStatus) ([]*models.AutomationRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM browser_automation_runs
		WHERE status = $1
		  AND (NOT $2 OR scheduled_at IS NULL OR scheduled_at <= NOW())
		ORDER BY priority DESC, created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, status, status == models.RunStatusScheduled)
	if err != nil {
		return nil, persistence.NewStoreError("RunsByStatus", "run", "", err)
	}
	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.AutomationRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, persistence.NewStoreError("RunsByStatus", "run", "", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("RunsByStatus", "run", "", err)
	}

	return runs, nil
}

func (r *RunRepository) UpdateRun(ctx context.Context, run *models.AutomationRun) error {
	query := `
		UPDATE browser_automation_runs SET
			status = $2,
			started_at = $3,
			finished_at = $4,
			run_duration = $5,
			retry_count = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		run.ID,
		run.Status,
		run.StartedAt,
		run.FinishedAt,
		run.RunDuration,
		run.RetryCount,
	).Scan(&run.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewStoreError("UpdateRun", "run", strconv.FormatInt(run.ID, 10), persistence.ErrRunNotFound)
		}

		return persistence.NewStoreError("UpdateRun", "run", strconv.FormatInt(run.ID, 10), err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.AutomationRun, error) {
	var (
		run                                models.AutomationRun
		payload                            sql.NullString
		scheduledAt, startedAt, finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Tenant,
		&run.UserID,
		&run.BrowserConfigID,
		&run.Type,
		&payload,
		&run.Status,
		&scheduledAt,
		&startedAt,
		&finishedAt,
		&run.RunDuration,
		&run.RetryCount,
		&run.TriggeredBy,
		&run.Priority,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Payload = payload.String
	run.ScheduledAt = timePtr(scheduledAt)
	run.StartedAt = timePtr(startedAt)
	run.FinishedAt = timePtr(finishedAt)

	return &run, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	return &t.Time
}
