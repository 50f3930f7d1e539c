package domain

import (
	"strings"
	"time"
)

type User struct {
	ID               int64
	OrganizationID   int64
	TenantID         int64  // tenant of the organization, filled by lookups
	OrganizationName string // filled by lookups
	Email            string // lowercased
	FirstName        string
	LastName         string
	PasswordHash     string // argon2id PHC or bcrypt
	IsActive         bool

	FailedLoginAttempts int
	IsLocked            bool
	LockoutEnd          *time.Time
	LastLoginAt         *time.Time

	CreatedAt time.Time
}

// DisplayName is "First Last", without stray spaces when either is empty.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// LockedAt reports whether the account is locked at now. Only a lock with an
// end in the future blocks a login.
func (u User) LockedAt(now time.Time) bool {
	return u.IsLocked && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// LockExpiredAt reports whether a lock is still recorded but has run out.
func (u User) LockExpiredAt(now time.Time) bool {
	return u.IsLocked && u.LockoutEnd != nil && !u.LockoutEnd.After(now)
}
