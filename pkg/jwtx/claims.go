package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL is the lifetime of an access token.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of a refresh token and its cookie.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// ClaimsVersion is bumped whenever a field is renamed or changes meaning.
	// Verifiers reject any other value.
	ClaimsVersion = 1
)

// Claims is the complete access-token claim set. Every field is fixed; there
// is no free-form claim bag.
type Claims struct {
	jwt.RegisteredClaims

	Version        int      `json:"ver"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	TenantID       int64    `json:"tenant_id"`
	OrganizationID int64    `json:"organization_id"`
	Roles          []string `json:"roles"`
}

// Identity is what an access token asserts about its holder.
type Identity struct {
	UserID         int64
	Email          string
	Name           string
	TenantID       int64
	OrganizationID int64
	Roles          []string
}

// NewAccessClaims builds claims for id valid from now until now+ttl.
func NewAccessClaims(id Identity, issuer string, audience []string, ttl time.Duration, now time.Time) Claims {
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Version:        ClaimsVersion,
		Email:          id.Email,
		Name:           id.Name,
		TenantID:       id.TenantID,
		OrganizationID: id.OrganizationID,
		Roles:          roles,
	}
}

// NewJTI returns a random URL-safe token id.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// UserID parses the subject back into the numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidClaim
	}
	return id, nil
}

// HasRole reports whether role is among the token's roles.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience passes when at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

func (c *Claims) ValidateVersion() error {
	if c.Version != ClaimsVersion {
		return ErrClaimsVersion
	}
	return nil
}

// ValidateExpiry checks exp and nbf at now with the given leeway. A token
// without exp is rejected: every access token this service signs has one.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrExpired
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
