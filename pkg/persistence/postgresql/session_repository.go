package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
)

// SessionRepository reads browser configs and proxies and flips session status.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

func (r *SessionRepository) BrowserConfigByID(ctx context.Context, id int64) (*models.BrowserConfig, error) {
	query := `
		SELECT id, user_id, tenant, cookies, user_agent, session_status, created_at, updated_at
		FROM browser_configs
		WHERE id = $1
	`

	var (
		config             models.BrowserConfig
		cookies, userAgent sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&config.ID,
		&config.UserID,
		&config.Tenant,
		&cookies,
		&userAgent,
		&config.SessionStatus,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("BrowserConfigByID", "browser_config", strconv.FormatInt(id, 10), persistence.ErrBrowserConfigNotFound)
		}

		return nil, persistence.NewStoreError("BrowserConfigByID", "browser_config", strconv.FormatInt(id, 10), err)
	}

	config.Cookies = cookies.String
	config.UserAgent = userAgent.String

	return &config, nil
}

func (r *SessionRepository) AssignedProxyByUserID(ctx context.Context, userID string) (*models.AssignedProxy, error) {
	query := `
		SELECT id, proxy_pool_id, user_id, tenant, created_at, updated_at
		FROM assigned_proxies
		WHERE user_id = $1
	`

	var assignment models.AssignedProxy

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&assignment.ID,
		&assignment.ProxyPoolID,
		&assignment.UserID,
		&assignment.Tenant,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("AssignedProxyByUserID", "assigned_proxy", userID, persistence.ErrAssignedProxyNotFound)
		}

		return nil, persistence.NewStoreError("AssignedProxyByUserID", "assigned_proxy", userID, err)
	}

	return &assignment, nil
}

// ProxyPoolEntryByID returns an enabled proxy pool entry. Disabled entries are reported as missing.
func (r *SessionRepository) ProxyPoolEntryByID(ctx context.Context, id int64) (*models.ProxyPoolEntry, error) {
	query := `
		SELECT id, url, username, password, enabled, created_at, updated_at
		FROM proxy_pool
		WHERE id = $1 AND enabled = true
	`

	var entry models.ProxyPoolEntry

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.URL,
		&entry.Username,
		&entry.Password,
		&entry.Enabled,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ProxyPoolEntryByID", "proxy_pool", strconv.FormatInt(id, 10), persistence.ErrProxyPoolEntryNotFound)
		}

		return nil, persistence.NewStoreError("ProxyPoolEntryByID", "proxy_pool", strconv.FormatInt(id, 10), err)
	}

	return &entry, nil
}

func (r *SessionRepository) UpdateBrowserConfigSessionStatus(ctx context.Context, userID, tenant string, status models.SessionStatus) error {
	query := `
		UPDATE browser_configs
		SET session_status = $3, updated_at = NOW()
		WHERE user_id = $1 AND tenant = $2 AND session_status <> $3
	`

	result, err := r.db.ExecContext(ctx, query, userID, tenant, status)
	if err != nil {
		return persistence.NewStoreError("UpdateBrowserConfigSessionStatus", "browser_config", userID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		r.logger.DebugContext(ctx, "browser config session status updated",
			"user_id", userID, "tenant", tenant, "status", status, "rows", affected)
	}

	return nil
}

// SaveBrowserConfig inserts a browser config. Configs are owned by upstream services; this exists
// for seeding and tests.
func (r *SessionRepository) SaveBrowserConfig(ctx context.Context, config *models.BrowserConfig) error {
	if config.SessionStatus == "" {
		config.SessionStatus = models.SessionStatusValid
	}

	query := `
		INSERT INTO browser_configs (user_id, tenant, cookies, user_agent, session_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		config.UserID,
		config.Tenant,
		nullString(config.Cookies),
		nullString(config.UserAgent),
		config.SessionStatus,
	).Scan(&config.ID, &config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveBrowserConfig", "browser_config", config.UserID, err)
	}

	return nil
}

// SaveProxyPoolEntry inserts a proxy pool entry.
func (r *SessionRepository) SaveProxyPoolEntry(ctx context.Context, entry *models.ProxyPoolEntry) error {
	query := `
		INSERT INTO proxy_pool (url, username, password, enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, entry.URL, entry.Username, entry.Password, entry.Enabled).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveProxyPoolEntry", "proxy_pool", "", err)
	}

	return nil
}

// AssignProxy binds a user to a proxy pool entry, replacing any previous assignment.
func (r *SessionRepository) AssignProxy(ctx context.Context, assignment *models.AssignedProxy) error {
	query := `
		INSERT INTO assigned_proxies (proxy_pool_id, user_id, tenant)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			proxy_pool_id = EXCLUDED.proxy_pool_id,
			tenant = EXCLUDED.tenant,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, assignment.ProxyPoolID, assignment.UserID, assignment.Tenant).
		Scan(&assignment.ID, &assignment.CreatedAt, &assignment.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("AssignProxy", "assigned_proxy", assignment.UserID, err)
	}

	return nil
}
