package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
	authhttp "github.com/clubfig/clubfig/internal/auth/http"
	"github.com/clubfig/clubfig/internal/auth/obs"
	"github.com/clubfig/clubfig/internal/auth/service"
	"github.com/clubfig/clubfig/internal/auth/store/drivers/sqlite"
	"github.com/clubfig/clubfig/internal/auth/throttle"
	"github.com/clubfig/clubfig/pkg/authsdk"
	"github.com/clubfig/clubfig/pkg/cryptox"
	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/clubfig/clubfig/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const (
	testHost     = "acme.clubfig.test"
	testEmail    = "ada@acme.test"
	testPassword = "correct horse battery staple"
)

type server struct {
	router  *authhttp.Router
	store   *sqlite.Store
	metrics *obs.Metrics
	userID  int64
}

func newServer(t *testing.T, limiter throttle.Limiter) *server {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	tenantID, err := s.Tenants().CreateTenant(ctx, domain.Tenant{Code: "acme", OrganizationName: "Acme", IsActive: true})
	require.NoError(t, err)
	orgID, err := s.Organizations().CreateOrganization(ctx, domain.Organization{TenantID: tenantID, Name: "Acme FC", IsActive: true})
	require.NoError(t, err)
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	userID, err := s.Users().CreateUser(ctx, domain.User{
		OrganizationID: orgID, Email: testEmail, FirstName: "Ada", LastName: "Lovelace", PasswordHash: hash, IsActive: true,
	})
	require.NoError(t, err)
	roleID, err := s.Roles().CreateRole(ctx, "Member")
	require.NoError(t, err)
	require.NoError(t, s.Roles().AssignRole(ctx, userID, roleID))

	opts := jwtx.VerifyOptions{Issuer: "clubfig", Audience: []string{"clubfig-web"}}
	auth := &service.Authenticator{
		Store: s,
		Issuer: &service.TokenIssuer{
			Signer:   jwtx.NewSignerHS256(testSecret),
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
		},
	}

	metrics := obs.New()
	router := authhttp.NewRouter(jwtx.NewHS256(testSecret, opts), &service.TenantService{Store: s}, metrics, slogx.Discard())
	router.Auth = authhttp.NewAuthHandler(auth, limiter, metrics, authhttp.CookieConfig{Secure: true})
	router.Readies["database"] = s
	router.ApplyRoutes()

	return &server{router: router, store: s, metrics: metrics, userID: userID}
}

func (s *server) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = testHost
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func refreshCookieOf(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == authhttp.RefreshTokenCookie {
			return c
		}
	}
	t.Fatal("no refresh cookie")
	return nil
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m authsdk.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	return m.Message
}

func (s *server) login(t *testing.T) (authsdk.LoginResponse, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := refreshCookieOf(t, rec)

	var resp authsdk.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp, cookie
}

func TestLogin(t *testing.T) {
	s := newServer(t, nil)

	resp, cookie := s.login(t)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, s.userID, resp.User.UserID)
	require.Equal(t, "Acme FC", resp.User.OrganizationName)
	require.Equal(t, []string{"Member"}, resp.User.Roles)

	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/", cookie.Path)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), cookie.Expires, time.Minute)
}

func TestLoginErrors(t *testing.T) {
	s := newServer(t, nil)

	t.Run("no tenant", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: testPassword},
			func(r *http.Request) { r.Host = "localhost" })
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Tenant not identified", message(t, rec))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: testPassword},
			func(r *http.Request) { r.Host = "globex.clubfig.test" })
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": testEmail})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Email and password are required", message(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		req.Host = testHost
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid email or password", message(t, rec))
		require.Empty(t, rec.Result().Cookies())
	})
}

func TestLoginLockedLooksLikeBadPassword(t *testing.T) {
	s := newServer(t, nil)
	until := time.Now().Add(time.Hour)
	require.NoError(t, s.store.Users().LockUser(context.Background(), s.userID, &until))

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: testPassword})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid email or password", message(t, rec))
}

func TestLoginThrottle(t *testing.T) {
	s := newServer(t, throttle.NewMemory(2, time.Minute))

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: testEmail, Password: testPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "Too many login attempts", message(t, rec))
}

func TestRefresh(t *testing.T) {
	s := newServer(t, nil)
	_, cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Refresh token not found", message(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := refreshCookieOf(t, rec)
	require.NotEqual(t, cookie.Value, rotated.Value)

	rec = s.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid or expired refresh token", message(t, rec))
}

func TestMe(t *testing.T) {
	s := newServer(t, nil)
	resp, _ := s.login(t)

	rec := s.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, withBearer(resp.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var me authsdk.MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	require.Equal(t, s.userID, me.UserID)
	require.Equal(t, testEmail, me.Email)
	require.Equal(t, "Ada Lovelace", me.Name)
	require.Equal(t, []string{"Member"}, me.Roles)
	require.NotZero(t, me.TenantID)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, withCookie(&http.Cookie{Name: "accessToken", Value: resp.AccessToken}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRevokeToken(t *testing.T) {
	s := newServer(t, nil)
	resp, cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/revoke-token", nil, withBearer(resp.AccessToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Token is required", message(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/revoke-token", nil, withBearer(resp.AccessToken), withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Token revoked", message(t, rec))

	rec = s.do(t, http.MethodPost, "/auth/revoke-token", nil, withBearer(resp.AccessToken), withCookie(cookie))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Token not found", message(t, rec))
}

func TestLogout(t *testing.T) {
	s := newServer(t, nil)
	resp, cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", nil, withBearer(resp.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := refreshCookieOf(t, rec)
	require.Empty(t, cleared.Value)
	require.Equal(t, "Logged out successfully", message(t, rec))

	row, err := s.store.RefreshTokens().GetRefreshTokenByHash(context.Background(), cryptox.FingerprintToken(cookie.Value))
	require.NoError(t, err)
	require.NotNil(t, row.RevokedAt)

	rec = s.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(t, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "ok", health.Checks["database"])

	s.login(t)
	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `auth_outcomes_total{operation="login",outcome="ok"} 1`)
	require.Contains(t, rec.Body.String(), `path="POST /auth/login"`)
}
