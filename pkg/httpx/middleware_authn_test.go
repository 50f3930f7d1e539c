package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubfig/clubfig/pkg/httpx"
	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var authnSecret = []byte("0123456789abcdef0123456789abcdef")

func signAccess(t *testing.T, h *jwtx.HS256, userID int64, now time.Time) string {
	t.Helper()
	token, err := h.Sign(jwtx.NewAccessClaims(jwtx.Identity{
		UserID:   userID,
		Email:    "a@x.com",
		TenantID: 1,
		Roles:    []string{"Member"},
	}, "clubfig", nil, time.Minute, now))
	require.NoError(t, err)
	return token
}

func TestAuthnMiddleware(t *testing.T) {
	now := time.Now()
	hs := jwtx.NewHS256(authnSecret, jwtx.VerifyOptions{Issuer: "clubfig", Now: func() time.Time { return now }})

	var gotID int64
	var gotClaims jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = httpx.UserIDFromContext(r.Context())
		gotClaims, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), httpx.AuthnMiddleware(hs))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signAccess(t, hs, 7, now))

		rec := serve(h, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.EqualValues(t, 7, gotID)
		require.Equal(t, "a@x.com", gotClaims.Email)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: signAccess(t, hs, 9, now)})

		rec := serve(h, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.EqualValues(t, 9, gotID)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		require.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signAccess(t, hs, 7, now.Add(-time.Hour)))
		require.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serve(httpx.Chain(okHandler, mark("a"), mark("b"), mark("c")), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}
