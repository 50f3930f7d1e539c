package store

import (
	"context"
	"errors"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so a Tx can
// hand out the same repos bound to its transaction, and nothing can open a
// transaction inside another one.
type Store interface {
	Tenants() Tenants
	Organizations() Organizations
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	// GetTenantByCode returns an active tenant. Inactive tenants are
	// ErrNotFound; suspended ones are returned with IsSuspended set.
	GetTenantByCode(ctx context.Context, code string) (domain.Tenant, error)

	// CreateTenant inserts t and returns its id.
	CreateTenant(ctx context.Context, t domain.Tenant) (int64, error)

	SetTenantSuspended(ctx context.Context, id int64, suspended bool) error
}

type Organizations interface {
	CreateOrganization(ctx context.Context, o domain.Organization) (int64, error)
}

type Users interface {
	// GetUserByEmail finds an active user by email within tenantID. Users of
	// other tenants are never returned.
	GetUserByEmail(ctx context.Context, tenantID int64, email string) (domain.User, error)

	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) (int64, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// RecordFailedLogin increments the failure counter and locks the account
	// until lockoutEnd once the counter reaches threshold, in one statement.
	// It returns the new counter and lock flag.
	RecordFailedLogin(ctx context.Context, id int64, threshold int, lockoutEnd, now time.Time) (attempts int, locked bool, err error)

	// RecordSuccessfulLogin clears the counter and lock and stamps
	// last_login_at, unless the account is locked at now. It reports whether
	// the row was updated.
	RecordSuccessfulLogin(ctx context.Context, id int64, now time.Time) (bool, error)

	// ResetExpiredLockout clears a lock whose end is at or before now.
	ResetExpiredLockout(ctx context.Context, id int64, now time.Time) error

	// LockUser locks the account until `until`. A nil end only flags the
	// account: it does not block logins and the next success clears it.
	LockUser(ctx context.Context, id int64, until *time.Time) error
}

type Roles interface {
	// ListRoleNamesForUser returns the names of the user's current roles,
	// sorted by name.
	ListRoleNamesForUser(ctx context.Context, userID int64) ([]string, error)

	CreateRole(ctx context.Context, name string) (int64, error)
	AssignRole(ctx context.Context, userID, roleID int64) error

	// RemoveRole stamps removed_at on the active link.
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// RefreshTokens has no delete: rows are the audit trail.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshTokenIfActive revokes the token only while it is neither
	// revoked nor expired at now. It reports whether a row changed; false
	// means another caller got there first or the token ran out.
	RevokeRefreshTokenIfActive(ctx context.Context, hash, ip, replacedByID string, now time.Time) (bool, error)

	// RevokeAllUserRefreshTokens revokes every active token of the user and
	// returns how many were revoked.
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64, ip string, now time.Time) (int64, error)

	CountRefreshTokens(ctx context.Context, now time.Time) (domain.RefreshTokenCounts, error)
}
