package service

import (
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/pkg/cryptox"
	"github.com/clubfig/clubfig/pkg/jwtx"
)

// TokenIssuer mints access tokens and opaque refresh tokens.
type TokenIssuer struct {
	Signer    jwtx.Signer
	Issuer    string
	Audience  []string
	AccessTTL time.Duration
}

func (i *TokenIssuer) accessTTL() time.Duration {
	if i.AccessTTL > 0 {
		return i.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// IssueAccessToken signs an access token for user valid from now. tenantID
// is passed separately so the caller decides which tenant the token is for.
func (i *TokenIssuer) IssueAccessToken(user domain.User, roles []string, tenantID int64, now time.Time) (string, time.Time, error) {
	claims := jwtx.NewAccessClaims(jwtx.Identity{
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.DisplayName(),
		TenantID:       tenantID,
		OrganizationID: user.OrganizationID,
		Roles:          roles,
	}, i.Issuer, i.Audience, i.accessTTL(), now)

	token, err := i.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken returns 64 random bytes, base64url encoded.
func (i *TokenIssuer) IssueRefreshToken() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize512)
}
