// Package automation is the boundary to the browser automation service that drives a
// user's LinkedIn session.
package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/automation-runner/pkg/models"
)

// DefaultUserAgent is used when a browser config carries no user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// ActionProvider performs automation actions inside one user's session. Methods that can
// fail in a recoverable way return a non-nil *models.AutomationError next to whatever
// result was produced. A non-nil error is a fault: the action could not be carried out.
type ActionProvider interface {
	ScrapeConnections(ctx context.Context, payload models.FindConnectionsPayload) ([]models.LinkedInConnection, *models.AutomationError, error)
	DownloadConnections(ctx context.Context, payload models.DownloadConnectionsPayload) ([]models.LinkedInConnection, error)
	ScrapeCompanyPeople(ctx context.Context, payload models.FindCompanyPeoplePayload) ([]models.LinkedInProfile, *models.AutomationError, error)
	SendConnectionRequest(ctx context.Context, payload models.SendConnectionRequestPayload) (*models.InviteResult, *models.AutomationError, error)
	SendMessage(ctx context.Context, payload models.SendMessagePayload) (*models.MessageResult, *models.AutomationError, error)
}

// Factory builds a provider bound to a session.
type Factory interface {
	NewProvider(credentials Credentials) (ActionProvider, error)
}

// Cookie is one entry of a stored browser cookie jar.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Credentials is everything a provider needs to act as the user.
type Credentials struct {
	Cookies     []Cookie
	UserAgent   string
	ProxyHeader string
}

// NewCredentials parses the browser config's cookie jar and defaults its user agent.
func NewCredentials(config *models.BrowserConfig, proxyHeader string) (Credentials, error) {
	credentials := Credentials{
		Cookies:     []Cookie{},
		UserAgent:   strings.TrimSpace(config.UserAgent),
		ProxyHeader: proxyHeader,
	}

	if credentials.UserAgent == "" {
		credentials.UserAgent = DefaultUserAgent
	}

	if raw := strings.TrimSpace(config.Cookies); raw != "" {
		err := json.Unmarshal([]byte(raw), &credentials.Cookies)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to parse cookies of browser config %d: %w", config.ID, err)
		}
	}

	return credentials, nil
}
