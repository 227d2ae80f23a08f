package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/automation-runner/pkg/lease"
)

// NewLocker returns a Redis-backed locker when redisURL is set and an in-process one
// otherwise. The returned close function releases the Redis client.
func NewLocker(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (lease.Locker, func() error, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "Using in-process session leases")

		return lease.NewMemoryLocker(ttl), func() error { return nil }, nil
	}

	locker, err := lease.NewRedisLocker(ctx, logger, redisURL, ttl)
	if err != nil {
		return nil, nil, err
	}

	logger.InfoContext(ctx, "Using Redis session leases", "ttl", ttl)

	return locker, locker.Close, nil
}
