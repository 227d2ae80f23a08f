package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/automation-runner/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrRunNotFound)
		assert.NotNil(t, persistence.ErrBrowserConfigNotFound)
		assert.NotNil(t, persistence.ErrAssignedProxyNotFound)
		assert.NotNil(t, persistence.ErrProxyPoolEntryNotFound)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		runErr := persistence.NewStoreError("RunByID", "run", "42", persistence.ErrRunNotFound)
		proxyErr := fmt.Errorf("resolve: %w", persistence.NewStoreError("AssignedProxyByUserID", "assigned_proxy", "user-1", persistence.ErrAssignedProxyNotFound))

		assert.True(t, persistence.IsRunNotFound(runErr))
		assert.True(t, persistence.IsAssignedProxyNotFound(proxyErr))
		assert.False(t, persistence.IsBrowserConfigNotFound(proxyErr))
		assert.False(t, persistence.IsProxyPoolEntryNotFound(runErr))

		assert.True(t, errors.Is(runErr, persistence.ErrRunNotFound))
	})

	t.Run("store error contains context", func(t *testing.T) {
		err := persistence.NewStoreError("UpdateRun", "run", "42", persistence.ErrRunNotFound)

		assert.Contains(t, err.Error(), "UpdateRun")
		assert.Contains(t, err.Error(), "run 42")
		assert.Contains(t, err.Error(), "automation run not found")
	})

	t.Run("store error without id", func(t *testing.T) {
		err := persistence.NewStoreError("RunsByStatus", "run", "", errors.New("connection refused"))

		assert.Equal(t, "RunsByStatus operation failed for run: connection refused", err.Error())
	})
}
