package mocks

import (
	"context"

	"github.com/dukex/automation-runner/pkg/lease"
	"github.com/stretchr/testify/mock"
)

// MockLocker is a mock implementation of lease.Locker interface.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string) (lease.Release, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(lease.Release), args.Error(1)
}
