package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, created_by_ip)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, ts(t.ExpiresAt), ts(t.CreatedAt), t.CreatedByIP,
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		revokedAt  sql.NullTime
		revokedBy  sql.NullString
		replacedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, created_by_ip, revoked_at, revoked_by_ip, replaced_by_id
		FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.CreatedByIP, &revokedAt, &revokedBy, &replacedBy)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.RevokedAt = mapNullTimePtr(revokedAt)
	t.RevokedByIP = mapNullString(revokedBy)
	t.ReplacedByID = mapNullString(replacedBy)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshTokenIfActive(
	ctx context.Context,
	hash, ip, replacedByID string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_by_ip = ?, replaced_by_id = ?
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		ts(now), ip, optionalString(replacedByID), hash, ts(now),
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

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(
	ctx context.Context,
	userID int64,
	ip string,
	now time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_by_ip = ?
		WHERE user_id = ? AND revoked_at IS NULL AND expires_at > ?`,
		ts(now), ip, userID, ts(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) CountRefreshTokens(ctx context.Context, now time.Time) (domain.RefreshTokenCounts, error) {
	var c domain.RefreshTokenCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN revoked_at IS NULL AND expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN revoked_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN revoked_at IS NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM refresh_tokens`, ts(now), ts(now),
	).Scan(&c.Active, &c.Revoked, &c.Expired)
	return c, err
}
