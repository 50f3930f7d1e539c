package httpx

import (
	"net/http"
	"strings"

	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/clubfig/clubfig/pkg/slogx"
)

// AccessTokenCookie is read when no Authorization header is sent.
const AccessTokenCookie = "accessToken"

// AuthnMiddleware verifies the access token and puts its claims on the
// request context. Requests without a valid token get a 401.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := BearerToken(r)
			if raw == "" {
				writeBearerError(w, "missing access token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("access token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, userID, claims)))
		})
	}
}

// BearerToken extracts the access token from the Authorization header,
// falling back to the access-token cookie.
func BearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
}
