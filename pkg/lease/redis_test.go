package lease_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/automation-runner/pkg/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisLocker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	redisURL := startRedis(ctx, t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	first, err := lease.NewRedisLocker(ctx, logger, redisURL, time.Second)
	require.NoError(t, err)

	defer func() { _ = first.Close() }()

	second, err := lease.NewRedisLocker(ctx, logger, redisURL, time.Second)
	require.NoError(t, err)

	defer func() { _ = second.Close() }()

	t.Run("exclusive across lockers", func(t *testing.T) {
		release, err := first.Acquire(ctx, "browser-config-1")
		require.NoError(t, err)

		_, err = second.Acquire(ctx, "browser-config-1")
		require.ErrorIs(t, err, lease.ErrHeld)

		require.NoError(t, release(ctx))

		again, err := second.Acquire(ctx, "browser-config-1")
		require.NoError(t, err)
		require.NoError(t, again(ctx))
	})

	t.Run("stale release keeps the new holder", func(t *testing.T) {
		stale, err := first.Acquire(ctx, "browser-config-2")
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			_, err := second.Acquire(ctx, "browser-config-2")

			return err == nil
		}, 5*time.Second, 100*time.Millisecond)

		require.NoError(t, stale(ctx))

		_, err = first.Acquire(ctx, "browser-config-2")
		require.ErrorIs(t, err, lease.ErrHeld)
	})
}

func TestNewRedisLocker_InvalidURL(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := lease.NewRedisLocker(context.Background(), logger, "not-a-url", time.Second)
	assert.Error(t, err)
}
