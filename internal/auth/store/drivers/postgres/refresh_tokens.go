package postgres

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
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.CreatedByIP,
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
		FROM refresh_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.CreatedByIP, &revokedAt, &revokedBy, &replacedBy)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.RevokedAt = mapNullTimePtr(revokedAt)
	t.RevokedByIP = revokedBy.String
	t.ReplacedByID = replacedBy.String
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshTokenIfActive(
	ctx context.Context,
	hash, ip, replacedByID string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $1, revoked_by_ip = $2, replaced_by_id = $3
		WHERE token_hash = $4 AND revoked_at IS NULL AND expires_at > $1`,
		now, ip, nullIfEmpty(replacedByID), hash,
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
		SET revoked_at = $1, revoked_by_ip = $2
		WHERE user_id = $3 AND revoked_at IS NULL AND expires_at > $1`,
		now, ip, userID,
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
			COUNT(*) FILTER (WHERE revoked_at IS NULL AND expires_at > $1),
			COUNT(*) FILTER (WHERE revoked_at IS NOT NULL),
			COUNT(*) FILTER (WHERE revoked_at IS NULL AND expires_at <= $1)
		FROM refresh_tokens`, now,
	).Scan(&c.Active, &c.Revoked, &c.Expired)
	return c, err
}
