package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// HS256 signs and verifies tokens with one shared secret.
type HS256 struct {
	secret []byte
	opts   VerifyOptions
}

// NewHS256 returns a signer/verifier pair sharing secret.
func NewHS256(secret []byte, opts VerifyOptions) *HS256 {
	return &HS256{secret: secret, opts: opts}
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (h *HS256) Validate() error {
	if len(h.secret) < minSecretLength {
		return ErrWeakSecret
	}
	return nil
}

func (h *HS256) Sign(claims Claims) (string, error) {
	if err := h.Validate(); err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// Verify checks signature, algorithm, issuer, audience, expiry and claim
// version. The library's own time checks are disabled so that the configured
// leeway and clock are the only ones in play.
func (h *HS256) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrInvalidSig
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := claims.ValidateVersion(); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(h.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(h.opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(h.opts.now(), h.opts.Leeway); err != nil {
		return Claims{}, err
	}
	if _, err := claims.UserID(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
