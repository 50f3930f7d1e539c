package postgres

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

func (r *usersRepo) GetUserByEmail(ctx context.Context, tenantID int64, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		selectUser+`
		WHERE o.tenant_id = $1 AND u.email = $2 AND u.is_active AND o.is_active
		ORDER BY u.id LIMIT 1`,
		tenantID, normalizeEmail(email),
	))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.id = $1`, id))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (organization_id, email, first_name, last_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.OrganizationID, normalizeEmail(u.Email), u.FirstName, u.LastName, u.PasswordHash, u.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *usersRepo) SetUserActive(ctx context.Context, id int64, active bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`, active, id))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id))
}

// RecordFailedLogin relies on the row lock taken by UPDATE, so concurrent
// failures each see the previous increment.
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
			is_locked   = CASE WHEN failed_login_attempts + 1 >= $1 THEN TRUE ELSE is_locked END,
			lockout_end = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE lockout_end END,
			updated_at  = $3
		WHERE id = $4
		RETURNING failed_login_attempts, is_locked`,
		threshold, lockoutEnd, now, id,
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
			is_locked     = FALSE,
			lockout_end   = NULL,
			last_login_at = $1,
			updated_at    = $1
		WHERE id = $2
		  AND NOT (is_locked AND lockout_end IS NOT NULL AND lockout_end > $1)`,
		now, id,
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
			is_locked   = FALSE,
			lockout_end = NULL,
			updated_at  = $1
		WHERE id = $2 AND is_locked AND lockout_end IS NOT NULL AND lockout_end <= $1`,
		now, id,
	)
	return err
}

func (r *usersRepo) LockUser(ctx context.Context, id int64, until *time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET is_locked = TRUE, lockout_end = $1, updated_at = now() WHERE id = $2`,
		optionalTime(until), id))
}
