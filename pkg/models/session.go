package models

import (
	"net/url"
	"strings"
	"time"
)

// SessionStatus is the validity of a user's stored browser session.
type SessionStatus string

const (
	SessionStatusValid   SessionStatus = "VALID"
	SessionStatusInvalid SessionStatus = "INVALID"
	SessionStatusExpired SessionStatus = "EXPIRED"
)

// BrowserConfig holds a user's browser session. Cookies is the serialized cookie jar as stored.
type BrowserConfig struct {
	ID            int64         `json:"id"`
	UserID        string        `json:"user_id"`
	Tenant        string        `json:"tenant"`
	Cookies       string        `json:"cookies,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	SessionStatus SessionStatus `json:"session_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AssignedProxy is the sticky mapping from a user to a proxy pool entry.
type AssignedProxy struct {
	ID          int64     `json:"id"`
	ProxyPoolID int64     `json:"proxy_pool_id"`
	UserID      string    `json:"user_id"`
	Tenant      string    `json:"tenant"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProxyPoolEntry is one egress proxy.
type ProxyPoolEntry struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProxyHeader reduces the entry to the single value handed to the automation service:
// the proxy URL with the credentials embedded as userinfo. A URL without scheme is
// treated as http.
func (p *ProxyPoolEntry) ProxyHeader() (string, error) {
	raw := p.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if p.Username != "" {
		parsed.User = url.UserPassword(p.Username, p.Password)
	}

	return parsed.String(), nil
}
