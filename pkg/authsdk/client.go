package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to one tenant host of the auth service. Its cookie jar
// keeps the refresh token between calls.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient returns a client for baseURL with its own cookie jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil)
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// Login exchanges credentials for a session. Every credential failure,
// including a locked account, comes back as a 401 *APIError.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var lr LoginResponse
	if err := decodeJSON(resp, &lr, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &lr), nil
}

// Refresh rotates the refresh token held in the cookie jar.
func (c *SDKClient) Refresh(ctx context.Context) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", nil, nil)
	if err != nil {
		return nil, err
	}

	var lr LoginResponse
	if err := decodeJSON(resp, &lr, http.StatusOK); err != nil {
		return nil, err
	}
	return &lr, nil
}

// ResumeSession restores a session from the refresh cookie alone, e.g.
// after a process restart with a persisted jar.
func (c *SDKClient) ResumeSession(ctx context.Context) (*Session, error) {
	lr, err := c.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(c, lr), nil
}
