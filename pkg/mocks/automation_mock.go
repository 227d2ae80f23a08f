package mocks

import (
	"context"

	"github.com/dukex/automation-runner/pkg/automation"
	"github.com/dukex/automation-runner/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockActionProvider is a mock implementation of automation.ActionProvider interface.
type MockActionProvider struct {
	mock.Mock
}

func automationError(value any) *models.AutomationError {
	if value == nil {
		return nil
	}

	return value.(*models.AutomationError)
}

func (m *MockActionProvider) ScrapeConnections(ctx context.Context, payload models.FindConnectionsPayload) ([]models.LinkedInConnection, *models.AutomationError, error) {
	args := m.Called(ctx, payload)

	connections, _ := args.Get(0).([]models.LinkedInConnection)

	return connections, automationError(args.Get(1)), args.Error(2)
}

func (m *MockActionProvider) DownloadConnections(ctx context.Context, payload models.DownloadConnectionsPayload) ([]models.LinkedInConnection, error) {
	args := m.Called(ctx, payload)

	connections, _ := args.Get(0).([]models.LinkedInConnection)

	return connections, args.Error(1)
}

func (m *MockActionProvider) ScrapeCompanyPeople(ctx context.Context, payload models.FindCompanyPeoplePayload) ([]models.LinkedInProfile, *models.AutomationError, error) {
	args := m.Called(ctx, payload)

	people, _ := args.Get(0).([]models.LinkedInProfile)

	return people, automationError(args.Get(1)), args.Error(2)
}

func (m *MockActionProvider) SendConnectionRequest(ctx context.Context, payload models.SendConnectionRequestPayload) (*models.InviteResult, *models.AutomationError, error) {
	args := m.Called(ctx, payload)

	invite, _ := args.Get(0).(*models.InviteResult)

	return invite, automationError(args.Get(1)), args.Error(2)
}

func (m *MockActionProvider) SendMessage(ctx context.Context, payload models.SendMessagePayload) (*models.MessageResult, *models.AutomationError, error) {
	args := m.Called(ctx, payload)

	message, _ := args.Get(0).(*models.MessageResult)

	return message, automationError(args.Get(1)), args.Error(2)
}

// MockFactory is a mock implementation of automation.Factory interface.
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) NewProvider(credentials automation.Credentials) (automation.ActionProvider, error) {
	args := m.Called(credentials)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(automation.ActionProvider), args.Error(1)
}
