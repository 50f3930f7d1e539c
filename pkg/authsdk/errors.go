package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clubfig/clubfig/pkg/httpx"
)

// APIError is the error body of every non-2xx response: {"message": "..."}.
// The server writes it and the client decodes it back.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// WriteError writes e to w.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteMessage(w, e.StatusCode, e.Message)
}

// Errors the auth endpoints answer with.
var (
	ErrTenantNotIdentified = &APIError{StatusCode: http.StatusBadRequest, Message: "Tenant not identified"}
	ErrLoginBody           = &APIError{StatusCode: http.StatusBadRequest, Message: "Email and password are required"}
	ErrLoginThrottled      = &APIError{StatusCode: http.StatusTooManyRequests, Message: "Too many login attempts"}

	// ErrInvalidLogin covers unknown email, wrong password and locked
	// accounts alike.
	ErrInvalidLogin = &APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}

	ErrRefreshMissing = &APIError{StatusCode: http.StatusUnauthorized, Message: "Refresh token not found"}
	ErrRefreshInvalid = &APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired refresh token"}
	ErrTokenRequired  = &APIError{StatusCode: http.StatusBadRequest, Message: "Token is required"}
	ErrTokenNotFound  = &APIError{StatusCode: http.StatusNotFound, Message: "Token not found"}
	ErrUnauthorized   = &APIError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrInternal       = &APIError{StatusCode: http.StatusInternalServerError, Message: "Internal server error"}
)

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var msg MessageResponse
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
