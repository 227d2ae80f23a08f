// Package postgresql provides PostgreSQL persistence implementation for automation runs and sessions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/automation-runner/pkg/persistence"
	"github.com/dukex/automation-runner/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	runRepo     *RunRepository
	resultRepo  *ResultRepository
	errorRepo   *ErrorRepository
	sessionRepo *SessionRepository
	migrator    *sqlbase.MigrationManager
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	postgres := &Persistence{
		db:          database,
		logger:      logger,
		runRepo:     NewRunRepository(database, logger),
		resultRepo:  NewResultRepository(database, logger),
		errorRepo:   NewErrorRepository(database, logger),
		sessionRepo: NewSessionRepository(database, logger),
		migrator:    sqlbase.NewMigrationManager(logger, database, migrations()),
	}

	// Run migrations on initialization
	err = postgres.migrator.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

func (p *Persistence) RunRepository() persistence.RunRepository         { return p.runRepo }
func (p *Persistence) ResultRepository() persistence.ResultRepository   { return p.resultRepo }
func (p *Persistence) ErrorRepository() persistence.ErrorRepository     { return p.errorRepo }
func (p *Persistence) SessionRepository() persistence.SessionRepository { return p.sessionRepo }

// SchemaVersion returns the applied and the latest known migration versions.
func (p *Persistence) SchemaVersion(ctx context.Context) (int, int, error) {
	current, err := p.migrator.CurrentVersion(ctx)
	if err != nil {
		return 0, 0, err
	}

	return current, p.migrator.LatestVersion(), nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// closeRows closes a result set, logging instead of returning the close error.
func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
