package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clubfig/clubfig/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// fakeAuthServer mimics the cookie handling of the auth endpoints.
func fakeAuthServer(t *testing.T, accessTTL time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var refreshes atomic.Int32

	issue := func(w http.ResponseWriter, token string) {
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: token, Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.LoginResponse{
			AccessToken: "access-" + token,
			ExpiresAt:   time.Now().Add(accessTTL),
			User:        authsdk.UserView{UserID: 7, Email: "ada@acme.io", Roles: []string{"Member"}},
		})
	}
	message := func(w http.ResponseWriter, code int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(authsdk.MessageResponse{Message: msg})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct" {
			message(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		issue(w, "r0")
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("refreshToken")
		if err != nil {
			message(w, http.StatusUnauthorized, "Refresh token not found")
			return
		}
		n := refreshes.Add(1)
		issue(w, c.Value+"-"+string(rune('0'+n)))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			message(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.MeResponse{UserID: 7, Email: "ada@acme.io", TenantID: 1})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "", Path: "/", MaxAge: -1})
		message(w, http.StatusOK, "Logged out successfully")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func TestLoginAndMe(t *testing.T) {
	srv, _ := fakeAuthServer(t, 15*time.Minute)
	client := authsdk.NewSDKClient(srv.URL + "/")

	session, err := client.Login(context.Background(), "ada@acme.io", "correct")
	require.NoError(t, err)
	require.Equal(t, "access-r0", session.AccessToken())
	require.EqualValues(t, 7, session.User().UserID)

	me, err := session.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ada@acme.io", me.Email)
}

func TestLoginFailureIsAPIError(t *testing.T) {
	srv, _ := fakeAuthServer(t, 15*time.Minute)
	client := authsdk.NewSDKClient(srv.URL)

	_, err := client.Login(context.Background(), "ada@acme.io", "wrong")

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestSessionRefreshesExpiredAccessToken(t *testing.T) {
	// TTL inside the refresh buffer forces a refresh on first use.
	srv, refreshes := fakeAuthServer(t, 10*time.Second)
	client := authsdk.NewSDKClient(srv.URL)

	session, err := client.Login(context.Background(), "ada@acme.io", "correct")
	require.NoError(t, err)

	_, err = session.Me(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, refreshes.Load())
	require.Equal(t, "access-r0-1", session.AccessToken())
}

func TestRefreshWithoutCookie(t *testing.T) {
	srv, _ := fakeAuthServer(t, 15*time.Minute)
	client := authsdk.NewSDKClient(srv.URL)

	_, err := client.Refresh(context.Background())

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Refresh token not found", apiErr.Message)
}

func TestLogoutClearsCookie(t *testing.T) {
	srv, _ := fakeAuthServer(t, 15*time.Minute)
	client := authsdk.NewSDKClient(srv.URL)

	session, err := client.Login(context.Background(), "ada@acme.io", "correct")
	require.NoError(t, err)
	require.NoError(t, session.Logout(context.Background()))

	_, err = client.ResumeSession(context.Background())
	require.Error(t, err)
}

func TestAPIErrorWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	authsdk.ErrTokenNotFound.WriteError(rec)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Token not found"}`, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestReadyReportsDegradedChecks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authsdk.HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(authsdk.HealthResponse{
			Status: "degraded",
			Checks: map[string]string{"database": "ok", "redis": "error: connection refused"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := authsdk.NewSDKClient(srv.URL)

	live, err := client.Live(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Ready(context.Background())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, "ok", ready.Checks["database"])
	require.Contains(t, ready.Checks["redis"], "error")
}
