package domain

import "time"

// RefreshToken is a stored refresh token. Only the fingerprint of the opaque
// value is kept. Rows are revoked, never deleted.
type RefreshToken struct {
	ID           string // uuid
	UserID       int64
	TokenHash    string // base64url SHA-256 of the opaque value
	ExpiresAt    time.Time
	CreatedAt    time.Time
	CreatedByIP  string
	RevokedAt    *time.Time
	RevokedByIP  string
	ReplacedByID string // successor after rotation
}

func (t RefreshToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

func (t RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

func (t RefreshToken) IsActive(now time.Time) bool { return !t.IsExpired(now) && !t.IsRevoked() }

// RefreshTokenCounts is a snapshot of the refresh_tokens table.
type RefreshTokenCounts struct {
	Active  int64
	Revoked int64
	Expired int64
}
