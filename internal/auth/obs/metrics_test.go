package obs_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/obs"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *obs.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := obs.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	h := m.Instrument(mux)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))

	body := scrape(t, m)
	require.Contains(t, body, `http_requests_total{method="GET",path="GET /users/{id}",status="418"} 1`)
	require.NotContains(t, body, "/users/42")
}

func TestAuthMetrics(t *testing.T) {
	m := obs.New()
	m.AuthOutcome("login", "ok")
	m.AuthOutcome("login", "invalid_credentials")
	m.AuthOutcome("login", "invalid_credentials")
	m.SetRefreshTokenCounts(domain.RefreshTokenCounts{Active: 3, Revoked: 2, Expired: 1})

	body := scrape(t, m)
	require.Contains(t, body, `auth_outcomes_total{operation="login",outcome="invalid_credentials"} 2`)
	require.Contains(t, body, `auth_refresh_tokens{state="active"} 3`)
	require.True(t, strings.Contains(body, `auth_refresh_tokens{state="expired"} 1`))
}
