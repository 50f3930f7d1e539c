package authsdk

import "time"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// UserView is the user projection returned with a session.
type UserView struct {
	UserID           int64    `json:"userId"`
	Email            string   `json:"email"`
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	OrganizationName string   `json:"organizationName"`
	Roles            []string `json:"roles"`
}

// LoginResponse is returned by login and refresh. The refresh token travels
// only in the refreshToken cookie.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        UserView  `json:"user"`
}

// MeResponse is GET /auth/me, built from access-token claims.
type MeResponse struct {
	UserID         int64    `json:"userId"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	TenantID       int64    `json:"tenantId"`
	OrganizationID int64    `json:"organizationId"`
	Roles          []string `json:"roles"`
}

// MessageResponse is the body of plain acknowledgements and of errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
