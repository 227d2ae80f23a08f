package mocks

import (
	"context"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRunRepository is a mock implementation of persistence.RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) RunByID(ctx context.Context, id int64) (*models.AutomationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.AutomationRun), args.Error(1)
}

func (m *MockRunRepository) RunsByStatus(ctx context.Context, status models.RunStatus) ([]*models.AutomationRun, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.AutomationRun), args.Error(1)
}

func (m *MockRunRepository) UpdateRun(ctx context.Context, run *models.AutomationRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

// MockResultRepository is a mock implementation of persistence.ResultRepository interface.
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) InsertResult(ctx context.Context, result *models.RunResult) error {
	args := m.Called(ctx, result)

	return args.Error(0)
}

func (m *MockResultRepository) ResultsByRunID(ctx context.Context, runID int64) ([]*models.RunResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.RunResult), args.Error(1)
}

// MockErrorRepository is a mock implementation of persistence.ErrorRepository interface.
type MockErrorRepository struct {
	mock.Mock
}

func (m *MockErrorRepository) InsertError(ctx context.Context, runError *models.RunError) error {
	args := m.Called(ctx, runError)

	return args.Error(0)
}

func (m *MockErrorRepository) ErrorsByRunID(ctx context.Context, runID int64) ([]*models.RunError, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.RunError), args.Error(1)
}

// MockSessionRepository is a mock implementation of persistence.SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) BrowserConfigByID(ctx context.Context, id int64) (*models.BrowserConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.BrowserConfig), args.Error(1)
}

func (m *MockSessionRepository) AssignedProxyByUserID(ctx context.Context, userID string) (*models.AssignedProxy, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.AssignedProxy), args.Error(1)
}

func (m *MockSessionRepository) ProxyPoolEntryByID(ctx context.Context, id int64) (*models.ProxyPoolEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ProxyPoolEntry), args.Error(1)
}

func (m *MockSessionRepository) UpdateBrowserConfigSessionStatus(ctx context.Context, userID, tenant string, status models.SessionStatus) error {
	args := m.Called(ctx, userID, tenant, status)

	return args.Error(0)
}
