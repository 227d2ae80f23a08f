package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/automation-runner/pkg/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := lease.NewMemoryLocker(time.Minute)

	release, err := locker.Acquire(ctx, "browser-config-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "browser-config-1")
	require.ErrorIs(t, err, lease.ErrHeld)

	other, err := locker.Acquire(ctx, "browser-config-2")
	require.NoError(t, err, "leases are per key")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))

	again, err := locker.Acquire(ctx, "browser-config-1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestMemoryLocker_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := lease.NewMemoryLocker(50 * time.Millisecond)

	stale, err := locker.Acquire(ctx, "browser-config-1")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	fresh, err := locker.Acquire(ctx, "browser-config-1")
	require.NoError(t, err, "expired lease can be taken over")

	require.NoError(t, stale(ctx), "releasing a stolen lease is a no-op")

	_, err = locker.Acquire(ctx, "browser-config-1")
	require.ErrorIs(t, err, lease.ErrHeld, "stale release must not free the new holder")

	require.NoError(t, fresh(ctx))
}

func TestMemoryLocker_NoTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := lease.NewMemoryLocker(0)

	_, err := locker.Acquire(ctx, "browser-config-1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = locker.Acquire(ctx, "browser-config-1")
	assert.ErrorIs(t, err, lease.ErrHeld)
}
