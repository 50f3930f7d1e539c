package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/store"
	"github.com/clubfig/clubfig/internal/auth/store/drivers/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return postgres.New(db), mock
}

var userColumns = []string{
	"id", "organization_id", "tenant_id", "name", "email", "first_name", "last_name",
	"password_hash", "is_active", "failed_login_attempts", "is_locked", "lockout_end",
	"last_login_at", "created_at",
}

func TestGetUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := created.Add(time.Hour)

	mock.ExpectQuery(`WHERE o.tenant_id = \$1 AND u.email = \$2`).
		WithArgs(int64(3), "a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(7), int64(2), int64(3), "Acme Club", "a@x.com", "Ada", "Lovelace",
				"$argon2id$x", true, 5, true, end, nil, created))

	u, err := s.Users().GetUserByEmail(context.Background(), 3, "  A@x.com")
	require.NoError(t, err)
	require.EqualValues(t, 7, u.ID)
	require.EqualValues(t, 3, u.TenantID)
	require.True(t, u.IsLocked)
	require.NotNil(t, u.LockoutEnd)
	require.True(t, end.Equal(*u.LockoutEnd))
	require.Nil(t, u.LastLoginAt)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM users u`).
		WithArgs(int64(3), "nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Users().GetUserByEmail(context.Background(), 3, "nobody@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordFailedLogin(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	end := now.Add(15 * time.Minute)

	mock.ExpectQuery(`UPDATE users SET\s+failed_login_attempts = failed_login_attempts \+ 1`).
		WithArgs(5, end, now, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "is_locked"}).AddRow(5, true))

	attempts, locked, err := s.Users().RecordFailedLogin(context.Background(), 7, 5, end, now)
	require.NoError(t, err)
	require.Equal(t, 5, attempts)
	require.True(t, locked)
}

func TestRecordSuccessfulLoginWhileLocked(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`AND NOT \(is_locked AND lockout_end IS NOT NULL AND lockout_end > \$1\)`).
		WithArgs(now, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Users().RecordSuccessfulLogin(context.Background(), 7, now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevokeRefreshTokenIfActive(t *testing.T) {
	now := time.Now().UTC()

	t.Run("wins", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`WHERE token_hash = \$4 AND revoked_at IS NULL AND expires_at > \$1`).
			WithArgs(now, "10.0.0.1", "b1f1c0de-0000-4000-8000-000000000001", "hash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := s.RefreshTokens().RevokeRefreshTokenIfActive(context.Background(), "hash", "10.0.0.1",
			"b1f1c0de-0000-4000-8000-000000000001", now)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("loses", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE refresh_tokens`).
			WithArgs(now, "10.0.0.1", sqlmock.AnyArg(), "hash").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := s.RefreshTokens().RevokeRefreshTokenIfActive(context.Background(), "hash", "10.0.0.1", "", now)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestCreateRefreshTokenDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.RefreshTokens().CreateRefreshToken(context.Background(), domain.RefreshToken{
		ID: "b1f1c0de-0000-4000-8000-000000000001", UserID: 7, TokenHash: "hash", ExpiresAt: now, CreatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	now := time.Now().UTC()

	t.Run("commit", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.WithTx(context.Background(), func(tx store.Tx) error {
			ok, err := tx.RefreshTokens().RevokeRefreshTokenIfActive(context.Background(), "old", "ip", "new-id", now)
			require.NoError(t, err)
			require.True(t, ok)
			return tx.RefreshTokens().CreateRefreshToken(context.Background(), domain.RefreshToken{
				ID: "new-id", UserID: 7, TokenHash: "new", ExpiresAt: now, CreatedAt: now,
			})
		})
		require.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.WithTx(context.Background(), func(tx store.Tx) error {
			ok, err := tx.RefreshTokens().RevokeRefreshTokenIfActive(context.Background(), "old", "ip", "new-id", now)
			require.NoError(t, err)
			require.False(t, ok)
			return store.ErrNotFound
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCountRefreshTokens(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"active", "revoked", "expired"}).AddRow(4, 2, 1))

	c, err := s.RefreshTokens().CountRefreshTokens(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, domain.RefreshTokenCounts{Active: 4, Revoked: 2, Expired: 1}, c)
}
