package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a JWT and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions are the expectations every token must meet.
type VerifyOptions struct {
	// Issuer the token must carry. Empty disables the check.
	Issuer string

	// Audience values, at least one of which must be present.
	Audience []string

	// Leeway for exp/nbf. Zero means no clock-skew tolerance.
	Leeway time.Duration

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

func (o VerifyOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrWeakSecret    = errors.New("jwtx: signing secret must be at least 32 bytes")
	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrAudience      = errors.New("jwtx: audience mismatch")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim  = errors.New("jwtx: invalid claims")
	ErrClaimsVersion = errors.New("jwtx: unsupported claims version")
)
