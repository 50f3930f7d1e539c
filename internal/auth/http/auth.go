package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clubfig/clubfig/internal/auth/service"
	"github.com/clubfig/clubfig/internal/auth/throttle"
	"github.com/clubfig/clubfig/pkg/authsdk"
	"github.com/clubfig/clubfig/pkg/httpx"
	"github.com/clubfig/clubfig/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

const maxLoginBody = 16 << 10

// OutcomeRecorder counts authentication results. obs.Metrics implements it.
type OutcomeRecorder interface {
	AuthOutcome(operation, outcome string)
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	Authenticator *service.Authenticator
	Throttle      throttle.Limiter // optional
	Metrics       OutcomeRecorder  // optional
	Cookies       CookieConfig
}

var validate = validator.New()

func NewAuthHandler(a *service.Authenticator, limiter throttle.Limiter, metrics OutcomeRecorder, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		Authenticator: a,
		Throttle:      limiter,
		Metrics:       metrics,
		Cookies:       cookies,
	}
}

func (h *AuthHandler) record(operation string, res service.Result) {
	if h.Metrics == nil {
		return
	}
	outcome := "ok"
	if !res.OK() {
		outcome = res.Failure.String()
	}
	h.Metrics.AuthOutcome(operation, outcome)
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Verifies email and password within the tenant named by the Host header.
//	@Description	Returns an access token and sets the refreshToken cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Tenant not identified, or missing email/password"
//	@Failure		401		{object}	authsdk.MessageResponse	"Invalid email or password"
//	@Failure		429		{object}	authsdk.MessageResponse	"Too many login attempts"
//	@Router			/auth/login [post].
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	tenant, ok := TenantFromContext(ctx)
	if !ok {
		authsdk.ErrTenantNotIdentified.WriteError(w)
		return
	}

	var req authsdk.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		authsdk.ErrLoginBody.WriteError(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		authsdk.ErrLoginBody.WriteError(w)
		return
	}

	ip := httpx.ClientIP(r)

	if h.Throttle != nil {
		allowed, err := h.Throttle.Allow(ctx, throttle.Key(strconv.FormatInt(tenant.ID, 10), ip))
		if err != nil {
			// fail open: the account lockout still applies
			log.Warn("login throttle unavailable", "error", err)
		} else if !allowed {
			authsdk.ErrLoginThrottled.WriteError(w)
			return
		}
	}

	res, err := h.Authenticator.Login(ctx, req.Email, req.Password, tenant.ID, ip)
	if err != nil {
		log.Error("login failed", "error", err)
		authsdk.ErrInternal.WriteError(w)
		return
	}
	h.record("login", res)
	if !res.OK() {
		authsdk.ErrInvalidLogin.WriteError(w)
		return
	}

	h.writeSession(w, res.Session)
}

// Refresh godoc
//
//	@Summary		Rotate the refresh token
//	@Description	Exchanges the refreshToken cookie for a new access token and a new refresh cookie.
//	@Description	The presented refresh token is revoked and cannot be used again.
//	@Description	When reuse detection is enabled, presenting an already rotated token revokes every session of the user,
//	@Description	including the one issued by the rotation.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.LoginResponse
//	@Failure		401	{object}	authsdk.MessageResponse	"Refresh token not found, or invalid or expired"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := refreshCookie(r)
	if token == "" {
		authsdk.ErrRefreshMissing.WriteError(w)
		return
	}

	res, err := h.Authenticator.Refresh(ctx, token, httpx.ClientIP(r))
	if err != nil {
		slogx.FromContext(ctx).Error("refresh failed", "error", err)
		authsdk.ErrInternal.WriteError(w)
		return
	}
	h.record("refresh", res)
	if !res.OK() {
		authsdk.ErrRefreshInvalid.WriteError(w)
		return
	}

	h.writeSession(w, res.Session)
}

// Logout godoc
//
//	@Summary		Log out everywhere
//	@Description	Revokes every active refresh token of the caller and clears the refresh cookie.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MessageResponse	"Logged out successfully"
//	@Failure		401	{object}	authsdk.MessageResponse
//	@Router			/auth/logout [post].
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	if _, err := h.Authenticator.Logout(ctx, userID, httpx.ClientIP(r)); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "error", err)
		authsdk.ErrInternal.WriteError(w)
		return
	}

	h.Cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// RevokeToken godoc
//
//	@Summary		Revoke the current refresh token
//	@Description	Revokes the refresh token in the refreshToken cookie. Other sessions stay active.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MessageResponse	"Token revoked"
//	@Failure		400	{object}	authsdk.MessageResponse	"Token is required"
//	@Failure		401	{object}	authsdk.MessageResponse
//	@Failure		404	{object}	authsdk.MessageResponse	"Token not found"
//	@Router			/auth/revoke-token [post].
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	token := refreshCookie(r)
	if token == "" {
		authsdk.ErrTokenRequired.WriteError(w)
		return
	}

	res, err := h.Authenticator.Revoke(ctx, token, userID, httpx.ClientIP(r))
	if err != nil {
		slogx.FromContext(ctx).Error("revoke failed", "error", err)
		authsdk.ErrInternal.WriteError(w)
		return
	}
	h.record("revoke", res)
	if !res.OK() {
		authsdk.ErrTokenNotFound.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Token revoked"})
}

// Me godoc
//
//	@Summary		Current user
//	@Description	Returns the identity carried by the access token. No database lookup is made.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.MessageResponse
//	@Router			/auth/me [get].
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}
	userID, _ := claims.UserID()

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		UserID:         userID,
		Email:          claims.Email,
		Name:           claims.Name,
		TenantID:       claims.TenantID,
		OrganizationID: claims.OrganizationID,
		Roles:          roles,
	})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, s *service.Session) {
	h.Cookies.setRefresh(w, s.RefreshToken, s.RefreshExpiresAt)

	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: s.AccessToken,
		ExpiresAt:   s.AccessExpiresAt,
		User: authsdk.UserView{
			UserID:           s.User.ID,
			Email:            s.User.Email,
			FirstName:        s.User.FirstName,
			LastName:         s.User.LastName,
			OrganizationName: s.User.OrganizationName,
			Roles:            roles,
		},
	})
}
