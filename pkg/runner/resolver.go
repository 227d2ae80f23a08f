package runner

import (
	"context"
	"log/slog"

	"github.com/dukex/automation-runner/pkg/automation"
	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
)

// Resolver binds a run to its user's browser session and sticky proxy.
type Resolver struct {
	sessions persistence.SessionRepository
	factory  automation.Factory
	logger   *slog.Logger
}

func NewResolver(logger *slog.Logger, sessions persistence.SessionRepository, factory automation.Factory) *Resolver {
	return &Resolver{
		sessions: sessions,
		factory:  factory,
		logger:   logger.With("module", "run_resolver"),
	}
}

// Resolve builds an action provider for run. Every error it returns is a *models.FatalError:
// a run that cannot be resolved points at broken data, not at a transient failure.
func (r *Resolver) Resolve(ctx context.Context, run *models.AutomationRun) (automation.ActionProvider, error) {
	config, err := r.sessions.BrowserConfigByID(ctx, run.BrowserConfigID)
	if err != nil {
		if persistence.IsBrowserConfigNotFound(err) {
			return nil, models.NewFatalError(models.ReferenceBrowserConfigNotFound, "browser config not found", err)
		}

		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "failed to load browser config", err)
	}

	assignment, err := r.sessions.AssignedProxyByUserID(ctx, config.UserID)
	if err != nil {
		if persistence.IsAssignedProxyNotFound(err) {
			return nil, models.NewFatalError(models.ReferenceAssignedProxyNotFound, "assigned proxy not found", err)
		}

		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "failed to load assigned proxy", err)
	}

	entry, err := r.sessions.ProxyPoolEntryByID(ctx, assignment.ProxyPoolID)
	if err != nil {
		if persistence.IsProxyPoolEntryNotFound(err) {
			return nil, models.NewFatalError(models.ReferenceProxyPoolEntryNotFound, "proxy pool entry not found", err)
		}

		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "failed to load proxy pool entry", err)
	}

	proxyHeader, err := entry.ProxyHeader()
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "invalid proxy url", err)
	}

	credentials, err := automation.NewCredentials(config, proxyHeader)
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "invalid browser session", err)
	}

	provider, err := r.factory.NewProvider(credentials)
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceResolutionFailed, "failed to create action provider", err)
	}

	r.logger.DebugContext(ctx, "Resolved action provider",
		"run_id", run.ID, "user_id", config.UserID, "proxy_pool_id", entry.ID, "session_status", config.SessionStatus)

	return provider, nil
}
