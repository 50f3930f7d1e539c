package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/store"
	"github.com/clubfig/clubfig/pkg/cryptox"
	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/clubfig/clubfig/pkg/slogx"
	"github.com/google/uuid"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
	DefaultRefreshTTL        = jwtx.DefaultRefreshTokenTTL
)

// Authenticator runs the login and refresh-token flows against one store.
type Authenticator struct {
	Store  store.Store
	Issuer *TokenIssuer

	MaxFailedAttempts int
	LockoutDuration   time.Duration
	RefreshTTL        time.Duration

	// RevokeAllOnReuse revokes every session of a user when an already
	// rotated refresh token is presented again. A client retrying a refresh
	// that already succeeded also trips it and loses the new session.
	RevokeAllOnReuse bool

	Now func() time.Time
}

func (a *Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *Authenticator) maxFailedAttempts() int {
	if a.MaxFailedAttempts > 0 {
		return a.MaxFailedAttempts
	}
	return DefaultMaxFailedAttempts
}

func (a *Authenticator) lockoutDuration() time.Duration {
	if a.LockoutDuration > 0 {
		return a.LockoutDuration
	}
	return DefaultLockoutDuration
}

func (a *Authenticator) refreshTTL() time.Duration {
	if a.RefreshTTL > 0 {
		return a.RefreshTTL
	}
	return DefaultRefreshTTL
}

// Login verifies email and password within tenantID and, on success, issues
// a fresh access/refresh pair. Failed attempts are counted even though the
// outcome is a failure.
func (a *Authenticator) Login(ctx context.Context, email, password string, tenantID int64, sourceIP string) (Result, error) {
	log := slogx.FromContext(ctx)

	if tenantID == 0 {
		return fail(FailureTenantNotResolved), nil
	}

	now := a.now()
	users := a.Store.Users()

	user, err := users.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.EqualizeTiming(password)
			log.Info("login rejected: unknown user")
			return fail(FailureInvalidCredentials), nil
		}
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}

	log = log.With("user_id", user.ID)

	if user.LockedAt(now) {
		log.Warn("login rejected: account locked")
		return fail(FailureAccountLocked), nil
	}
	if user.LockExpiredAt(now) {
		if err := users.ResetExpiredLockout(ctx, user.ID, now); err != nil {
			return Result{}, fmt.Errorf("reset lockout: %w", err)
		}
		user.IsLocked = false
		user.LockoutEnd = nil
		user.FailedLoginAttempts = 0
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		attempts, locked, err := users.RecordFailedLogin(ctx, user.ID, a.maxFailedAttempts(), now.Add(a.lockoutDuration()), now)
		if err != nil {
			return Result{}, fmt.Errorf("record failed login: %w", err)
		}
		if locked {
			log.Warn("account locked after failed logins", "attempts", attempts)
		} else {
			log.Info("login rejected: bad password", "attempts", attempts)
		}
		return fail(FailureInvalidCredentials), nil
	}

	ok, err := users.RecordSuccessfulLogin(ctx, user.ID, now)
	if err != nil {
		return Result{}, fmt.Errorf("record login: %w", err)
	}
	if !ok {
		// locked by a concurrent attempt between the read and now
		log.Warn("login rejected: account locked")
		return fail(FailureAccountLocked), nil
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		if hash, err := cryptox.HashPassword(password); err == nil {
			if err := users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				log.Warn("password rehash failed", "error", err)
			}
		}
	}

	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now

	session, refresh, err := a.newSession(ctx, user, tenantID, sourceIP, now)
	if err != nil {
		return Result{}, err
	}
	if err := a.Store.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
		return Result{}, fmt.Errorf("store refresh token: %w", err)
	}

	log.Info("login succeeded")
	return Result{Session: session}, nil
}

// Refresh rotates the presented refresh token. The old token is revoked and
// its successor stored in one transaction; of two concurrent calls with the
// same token only one gets a session.
func (a *Authenticator) Refresh(ctx context.Context, presented, sourceIP string) (Result, error) {
	log := slogx.FromContext(ctx)
	now := a.now()
	hash := cryptox.FingerprintToken(presented)

	current, err := a.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(FailureTokenNotFound), nil
		}
		return Result{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	log = log.With("user_id", current.UserID)

	if !current.IsActive(now) {
		if current.ReplacedByID != "" && a.RevokeAllOnReuse {
			n, err := a.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, current.UserID, sourceIP, now)
			if err != nil {
				return Result{}, fmt.Errorf("revoke sessions on reuse: %w", err)
			}
			log.Warn("rotated refresh token reused, sessions revoked", "revoked", n)
		}
		return fail(FailureTokenInactive), nil
	}

	user, err := a.Store.Users().GetUserByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(FailureUserInactive), nil
		}
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		log.Info("refresh rejected: user inactive")
		return fail(FailureUserInactive), nil
	}

	session, successor, err := a.newSession(ctx, user, user.TenantID, sourceIP, now)
	if err != nil {
		return Result{}, err
	}

	lost := false
	err = a.Store.WithTx(ctx, func(tx store.Tx) error {
		revoked, err := tx.RefreshTokens().RevokeRefreshTokenIfActive(ctx, hash, sourceIP, successor.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			lost = true
			return errRotationLost
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, successor)
	})
	if lost {
		log.Info("refresh rejected: token already rotated")
		return fail(FailureTokenInactive), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	log.Info("refresh token rotated")
	return Result{Session: session}, nil
}

var errRotationLost = errors.New("refresh token no longer active")

// Revoke revokes one refresh token. When ownerID is non-zero a token of
// another user is reported as not found.
func (a *Authenticator) Revoke(ctx context.Context, presented string, ownerID int64, sourceIP string) (Result, error) {
	now := a.now()
	hash := cryptox.FingerprintToken(presented)
	tokens := a.Store.RefreshTokens()

	current, err := tokens.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(FailureTokenNotFound), nil
		}
		return Result{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if ownerID != 0 && current.UserID != ownerID {
		return fail(FailureTokenNotFound), nil
	}
	if !current.IsActive(now) {
		return fail(FailureTokenInactive), nil
	}

	revoked, err := tokens.RevokeRefreshTokenIfActive(ctx, hash, sourceIP, "", now)
	if err != nil {
		return Result{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		return fail(FailureTokenInactive), nil
	}

	slogx.FromContext(ctx).Info("refresh token revoked", "user_id", current.UserID)
	return Result{}, nil
}

// Logout revokes every active refresh token of userID.
func (a *Authenticator) Logout(ctx context.Context, userID int64, sourceIP string) (int64, error) {
	n, err := a.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, sourceIP, a.now())
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	slogx.FromContext(ctx).Info("logged out", "user_id", userID, "revoked", n)
	return n, nil
}

func (a *Authenticator) newSession(
	ctx context.Context,
	user domain.User,
	tenantID int64,
	sourceIP string,
	now time.Time,
) (*Session, domain.RefreshToken, error) {
	roles, err := a.Store.Roles().ListRoleNamesForUser(ctx, user.ID)
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("list roles: %w", err)
	}

	access, accessExp, err := a.Issuer.IssueAccessToken(user, roles, tenantID, now)
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := a.Issuer.IssueRefreshToken()
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}

	row := domain.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		TokenHash:   cryptox.FingerprintToken(refresh),
		ExpiresAt:   now.Add(a.refreshTTL()),
		CreatedAt:   now,
		CreatedByIP: sourceIP,
	}

	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: row.ExpiresAt,
		User:             user,
		Roles:            roles,
	}, row, nil
}
