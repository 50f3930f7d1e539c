package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const selectUser = `
SELECT u.id, u.organization_id, o.tenant_id, o.name, u.email, u.first_name, u.last_name,
       u.password_hash, u.is_active, u.failed_login_attempts, u.is_locked, u.lockout_end,
       u.last_login_at, u.created_at
FROM users u
JOIN organizations o ON o.id = u.organization_id`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		lockoutEnd sql.NullTime
		lastLogin  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.TenantID, &u.OrganizationName, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsActive, &u.FailedLoginAttempts, &u.IsLocked, &lockoutEnd,
		&lastLogin, &u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.LockoutEnd = mapNullTimePtr(lockoutEnd)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return u, nil
}

// GetUserByEmail only matches users whose organization belongs to tenantID.
// Emails are unique per organization; with several matches in one tenant
// the oldest account wins.
func (r *usersRepo) GetUserByEmail(ctx context.Context, tenantID int64, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		selectUser+`
		WHERE o.tenant_id = ? AND u.email = ? AND u.is_active = 1 AND o.is_active = 1
		ORDER BY u.id LIMIT 1`,
		tenantID, normalizeEmail(email),
	))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.id = ?`, id))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := ts(time.Now())
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (organization_id, email, first_name, last_name, password_hash, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		u.OrganizationID, normalizeEmail(u.Email), u.FirstName, u.LastName, u.PasswordHash, u.IsActive, now, now,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *usersRepo) SetUserActive(ctx context.Context, id int64, active bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, ts(time.Now()), id))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, ts(time.Now()), id))
}

func (r *usersRepo) RecordFailedLogin(
	ctx context.Context,
	id int64,
	threshold int,
	lockoutEnd, now time.Time,
) (int, bool, error) {
	var (
		attempts int
		locked   bool
	)
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			is_locked   = CASE WHEN failed_login_attempts + 1 >= ? THEN 1 ELSE is_locked END,
			lockout_end = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE lockout_end END,
			updated_at  = ?
		WHERE id = ?
		RETURNING failed_login_attempts, is_locked`,
		threshold, threshold, ts(lockoutEnd), ts(now), id,
	).Scan(&attempts, &locked)
	if err != nil {
		return 0, false, mapNotFound(err)
	}
	return attempts, locked, nil
}

func (r *usersRepo) RecordSuccessfulLogin(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			failed_login_attempts = 0,
			is_locked     = 0,
			lockout_end   = NULL,
			last_login_at = ?,
			updated_at    = ?
		WHERE id = ?
		  AND NOT (is_locked = 1 AND lockout_end IS NOT NULL AND lockout_end > ?)`,
		ts(now), ts(now), id, ts(now),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) ResetExpiredLockout(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			failed_login_attempts = 0,
			is_locked   = 0,
			lockout_end = NULL,
			updated_at  = ?
		WHERE id = ? AND is_locked = 1 AND lockout_end IS NOT NULL AND lockout_end <= ?`,
		ts(now), id, ts(now),
	)
	return err
}

func (r *usersRepo) LockUser(ctx context.Context, id int64, until *time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET is_locked = 1, lockout_end = ?, updated_at = ? WHERE id = ?`,
		optionalTime(until), ts(time.Now()), id))
}
