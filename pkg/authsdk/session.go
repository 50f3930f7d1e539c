package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const refreshBuffer = 30 * time.Second

// Session is an authenticated session. Its methods refresh the access token
// when it is about to expire.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	user        UserView
}

func newSession(c *SDKClient, lr *LoginResponse) *Session {
	return &Session{
		client:      c,
		accessToken: lr.AccessToken,
		expiresAt:   lr.ExpiresAt.Add(-refreshBuffer),
		user:        lr.User,
	}
}

// User returns the user the session was issued for.
func (s *Session) User() UserView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Refresh rotates the refresh token and replaces the access token.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	lr, err := s.client.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	s.accessToken = lr.AccessToken
	s.expiresAt = lr.ExpiresAt.Add(-refreshBuffer)
	s.user = lr.User
	return nil
}

func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Me returns the caller's identity as seen by the server.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// RevokeToken revokes the refresh token held in the cookie jar. The access
// token stays valid until it expires.
func (s *Session) RevokeToken(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/revoke-token", nil, nil)
	if err != nil {
		return err
	}
	var msg MessageResponse
	return decodeJSON(resp, &msg, http.StatusOK)
}

// Logout revokes every refresh token of the user, on all devices.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	var msg MessageResponse
	if err := decodeJSON(resp, &msg, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}
