package service

import (
	"errors"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

// FailureKind is an expected authentication outcome that is not a fault.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTenantNotResolved
	FailureInvalidCredentials
	FailureAccountLocked
	FailureTokenNotFound
	FailureTokenInactive
	FailureUserInactive
)

var (
	ErrTenantNotResolved  = errors.New("tenant_not_resolved")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrTokenNotFound      = errors.New("token_not_found")
	ErrTokenInactive      = errors.New("token_inactive")
	ErrUserInactive       = errors.New("user_inactive")
)

var failureErrors = map[FailureKind]error{
	FailureTenantNotResolved:  ErrTenantNotResolved,
	FailureInvalidCredentials: ErrInvalidCredentials,
	FailureAccountLocked:      ErrAccountLocked,
	FailureTokenNotFound:      ErrTokenNotFound,
	FailureTokenInactive:      ErrTokenInactive,
	FailureUserInactive:       ErrUserInactive,
}

func (k FailureKind) String() string {
	if err, ok := failureErrors[k]; ok {
		return err.Error()
	}
	return "none"
}

// Session is what a successful login or refresh hands back. RefreshToken is
// the opaque value; only its fingerprint is stored.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             domain.User
	Roles            []string
}

// Result is the outcome of an Authenticator call. Exactly one of Failure and
// Session is set for Login and Refresh; Revoke only sets Failure.
type Result struct {
	Failure FailureKind
	Session *Session
}

func (r Result) OK() bool { return r.Failure == FailureNone }

// Err maps the failure to its sentinel error, or nil on success.
func (r Result) Err() error { return failureErrors[r.Failure] }

func fail(kind FailureKind) Result { return Result{Failure: kind} }
