package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukex/automation-runner/pkg/models"
)

// ProxyHeader carries the proxy the automation service must route the session through.
const ProxyHeader = "X-Automation-Proxy"

const maxErrorBody = 4 << 10

var (
	// ErrAutomationService is wrapped by faults reported by the automation service.
	ErrAutomationService = errors.New("automation service error")
	ErrBaseURLRequired   = errors.New("automation service url is required")
)

// HTTPFactory builds providers that call the browser automation service over HTTP.
type HTTPFactory struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPFactory creates a factory for the service at baseURL. A nil client uses
// http.DefaultClient; call timeouts come from the caller's context.
func NewHTTPFactory(logger *slog.Logger, baseURL string, client *http.Client) (*HTTPFactory, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPFactory{
		baseURL: baseURL,
		client:  client,
		logger:  logger.With("module", "automation_http"),
	}, nil
}

func (f *HTTPFactory) NewProvider(credentials Credentials) (ActionProvider, error) {
	return &HTTPProvider{
		baseURL:     f.baseURL,
		client:      f.client,
		logger:      f.logger,
		credentials: credentials,
	}, nil
}

// HTTPProvider is an ActionProvider bound to one session.
type HTTPProvider struct {
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
	credentials Credentials
}

type actionRequest struct {
	Cookies   []Cookie `json:"cookies"`
	UserAgent string   `json:"userAgent"`
	Payload   any      `json:"payload"`
}

type actionResponse struct {
	Result json.RawMessage         `json:"result"`
	Error  *models.AutomationError `json:"error"`
}

func (p *HTTPProvider) ScrapeConnections(ctx context.Context, payload models.FindConnectionsPayload) ([]models.LinkedInConnection, *models.AutomationError, error) {
	var connections []models.LinkedInConnection

	automationErr, err := p.call(ctx, "scrape-connections", payload, &connections)

	return connections, automationErr, err
}

// DownloadConnections has no recoverable error channel: an error reported by the service
// is returned as a fault.
func (p *HTTPProvider) DownloadConnections(ctx context.Context, payload models.DownloadConnectionsPayload) ([]models.LinkedInConnection, error) {
	var connections []models.LinkedInConnection

	automationErr, err := p.call(ctx, "download-connections", payload, &connections)
	if err != nil {
		return nil, err
	}

	if automationErr != nil {
		return connections, automationErr
	}

	return connections, nil
}

func (p *HTTPProvider) ScrapeCompanyPeople(ctx context.Context, payload models.FindCompanyPeoplePayload) ([]models.LinkedInProfile, *models.AutomationError, error) {
	var people []models.LinkedInProfile

	automationErr, err := p.call(ctx, "scrape-company-people", payload, &people)

	return people, automationErr, err
}

func (p *HTTPProvider) SendConnectionRequest(ctx context.Context, payload models.SendConnectionRequestPayload) (*models.InviteResult, *models.AutomationError, error) {
	var invite *models.InviteResult

	automationErr, err := p.call(ctx, "send-connection-request", payload, &invite)

	return invite, automationErr, err
}

func (p *HTTPProvider) SendMessage(ctx context.Context, payload models.SendMessagePayload) (*models.MessageResult, *models.AutomationError, error) {
	var message *models.MessageResult

	automationErr, err := p.call(ctx, "send-message", payload, &message)

	return message, automationErr, err
}

func (p *HTTPProvider) call(ctx context.Context, action string, payload any, result any) (*models.AutomationError, error) {
	logger := p.logger.With("action", action)

	body, err := json.Marshal(actionRequest{
		Cookies:   p.credentials.Cookies,
		UserAgent: p.credentials.UserAgent,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	url := p.baseURL + "/v1/linkedin/" + action

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.credentials.UserAgent)

	if p.credentials.ProxyHeader != "" {
		req.Header.Set(ProxyHeader, p.credentials.ProxyHeader)
	}

	logger.DebugContext(ctx, "Calling automation service", "url", url)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.serviceFault(resp)
	}

	var decoded actionResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", action, err)
	}

	if len(decoded.Result) > 0 && !bytes.Equal(decoded.Result, []byte("null")) {
		err = json.Unmarshal(decoded.Result, result)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s result: %w", action, err)
		}
	}

	if decoded.Error != nil {
		logger.WarnContext(ctx, "Automation service reported an error",
			"reference", decoded.Error.Reference, "message", decoded.Error.Message)
	}

	return decoded.Error, nil
}

// serviceFault turns a non-2xx response into a fatal fault. A structured error body keeps
// its reference so that a rejected session is still recognised.
func (p *HTTPProvider) serviceFault(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	fault := &models.FatalError{
		Reference: models.ReferenceExecutionError,
		Code:      strconv.Itoa(resp.StatusCode),
		Message:   fmt.Sprintf("automation service returned status %d", resp.StatusCode),
		Err:       ErrAutomationService,
	}

	var decoded actionResponse
	if json.Unmarshal(raw, &decoded) == nil && decoded.Error != nil {
		if decoded.Error.Reference != "" {
			fault.Reference = decoded.Error.Reference
		}

		if decoded.Error.Code != "" {
			fault.Code = decoded.Error.Code
		}

		if decoded.Error.Message != "" {
			fault.Message = decoded.Error.Message
		}

		if decoded.Error.Details != "" {
			fault.Err = fmt.Errorf("%w: %s", ErrAutomationService, decoded.Error.Details)
		}
	} else if len(raw) > 0 {
		fault.Err = fmt.Errorf("%w: %s", ErrAutomationService, strings.TrimSpace(string(raw)))
	}

	return fault
}
