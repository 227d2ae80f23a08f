// Package cmd holds the constructors shared by the binaries. Implementations are selected
// from connection URLs and flag values.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/automation-runner/pkg/persistence"
	"github.com/dukex/automation-runner/pkg/persistence/memory"
	"github.com/dukex/automation-runner/pkg/persistence/postgresql"
)

const (
	PersistencePostgreSQL = "postgresql"
	PersistenceMemory     = "memory"
)

var supportedPersistenceProviders = map[string]string{
	"postgres":   PersistencePostgreSQL,
	"postgresql": PersistencePostgreSQL,
	"memory":     PersistenceMemory,
}

// NewPersistence opens the store named by databaseURL's scheme. PostgreSQL stores are
// migrated before they are returned.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, err := ParsePersistenceProvider(databaseURL)
	if err != nil {
		return nil, err
	}

	switch provider {
	case PersistencePostgreSQL:
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		logger.WarnContext(ctx, "Using in-memory persistence, nothing will survive a restart")

		return memory.NewPersistence(), nil
	}
}

// ParsePersistenceProvider maps a database URL to a persistence provider.
func ParsePersistenceProvider(databaseURL string) (string, error) {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}

	provider, ok := supportedPersistenceProviders[strings.ToLower(scheme)]
	if !ok {
		return "", fmt.Errorf("unsupported persistence provider %q", scheme)
	}

	return provider, nil
}
