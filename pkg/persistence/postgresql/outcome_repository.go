package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
)

// ResultRepository appends run results.
type ResultRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sql.DB, logger *slog.Logger) *ResultRepository {
	return &ResultRepository{db: db, logger: logger}
}

func (r *ResultRepository) InsertResult(ctx context.Context, result *models.RunResult) error {
	query := `
		INSERT INTO browser_automation_run_results (run_id, type, result_data, is_processed, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		result.RunID,
		result.Type,
		nullString(result.ResultData),
		result.IsProcessed,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("InsertResult", "run_result", strconv.FormatInt(result.RunID, 10), err)
	}

	return nil
}

func (r *ResultRepository) ResultsByRunID(ctx context.Context, runID int64) ([]*models.RunResult, error) {
	query := `
		SELECT id, run_id, type, result_data, is_processed, created_at
		FROM browser_automation_run_results
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, persistence.NewStoreError("ResultsByRunID", "run_result", strconv.FormatInt(runID, 10), err)
	}
	defer closeRows(ctx, r.logger, rows)

	results := make([]*models.RunResult, 0)

	for rows.Next() {
		var (
			result models.RunResult
			data   sql.NullString
		)

		err := rows.Scan(&result.ID, &result.RunID, &result.Type, &data, &result.IsProcessed, &result.CreatedAt)
		if err != nil {
			return nil, persistence.NewStoreError("ResultsByRunID", "run_result", strconv.FormatInt(runID, 10), err)
		}

		result.ResultData = data.String
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ResultsByRunID", "run_result", strconv.FormatInt(runID, 10), err)
	}

	return results, nil
}

// ErrorRepository appends run errors.
type ErrorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewErrorRepository creates a new error repository.
func NewErrorRepository(db *sql.DB, logger *slog.Logger) *ErrorRepository {
	return &ErrorRepository{db: db, logger: logger}
}

func (r *ErrorRepository) InsertError(ctx context.Context, runError *models.RunError) error {
	query := `
		INSERT INTO browser_automation_run_errors (run_id, error_type, error_code, error_message, error_details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, occurred_at
	`

	var occurredAt sql.NullTime
	if !runError.OccurredAt.IsZero() {
		occurredAt = sql.NullTime{Time: runError.OccurredAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		runError.RunID,
		runError.ErrorType,
		nullString(runError.ErrorCode),
		runError.ErrorMessage,
		nullString(runError.ErrorDetails),
		occurredAt,
	).Scan(&runError.ID, &runError.OccurredAt)
	if err != nil {
		return persistence.NewStoreError("InsertError", "run_error", strconv.FormatInt(runError.RunID, 10), err)
	}

	return nil
}

func (r *ErrorRepository) ErrorsByRunID(ctx context.Context, runID int64) ([]*models.RunError, error) {
	query := `
		SELECT id, run_id, error_type, error_code, error_message, error_details, occurred_at
		FROM browser_automation_run_errors
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, persistence.NewStoreError("ErrorsByRunID", "run_error", strconv.FormatInt(runID, 10), err)
	}
	defer closeRows(ctx, r.logger, rows)

	runErrors := make([]*models.RunError, 0)

	for rows.Next() {
		var (
			runError      models.RunError
			code, details sql.NullString
		)

		err := rows.Scan(&runError.ID, &runError.RunID, &runError.ErrorType, &code, &runError.ErrorMessage, &details, &runError.OccurredAt)
		if err != nil {
			return nil, persistence.NewStoreError("ErrorsByRunID", "run_error", strconv.FormatInt(runID, 10), err)
		}

		runError.ErrorCode = code.String
		runError.ErrorDetails = details.String
		runErrors = append(runErrors, &runError)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ErrorsByRunID", "run_error", strconv.FormatInt(runID, 10), err)
	}

	return runErrors, nil
}
