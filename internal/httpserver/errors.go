package httpserver

import (
	"errors"
	"net/http"
	"strings"

	domain "accounts/backend/internal/domain/auth"
)

// apiError is the HTTP rendering of a failure.
type apiError struct {
	status  int
	code    string
	message string
}

var (
	errInvalidUserID = apiError{http.StatusBadRequest, "invalid_input", "invalid user id"}
	errInvalidJSON   = apiError{http.StatusBadRequest, "invalid_input", "invalid JSON payload"}
	errNotFound      = apiError{http.StatusNotFound, "not_found", "resource not found"}
	errMethod        = apiError{http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"}
	errInternal      = apiError{http.StatusInternalServerError, "internal", "Internal server error"}
)

// errorTable is checked in order; wrapped input errors precede ErrInvalidInput.
var errorTable = []struct {
	target error
	api    apiError
}{
	{domain.ErrMissingCredentials, apiError{http.StatusBadRequest, "missing_credentials", "Missing username or password"}},
	{domain.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"}},
	{domain.ErrMissingToken, apiError{http.StatusUnauthorized, "missing_token", "Token is missing"}},
	{domain.ErrTokenExpired, apiError{http.StatusUnauthorized, "token_expired", "Token has expired"}},
	{domain.ErrInvalidToken, apiError{http.StatusUnauthorized, "invalid_token", "Token is invalid"}},
	{domain.ErrForbidden, apiError{http.StatusForbidden, "forbidden", "Unauthorized access"}},
	{domain.ErrUserNotFound, apiError{http.StatusNotFound, "user_not_found", "User not found"}},
	{domain.ErrUsernameExists, apiError{http.StatusBadRequest, "username_exists", "Username already exists"}},
	{domain.ErrEmailExists, apiError{http.StatusBadRequest, "email_exists", "Email already exists"}},
	{domain.ErrMissingFields, apiError{http.StatusBadRequest, "invalid_input", "Missing required fields"}},
	{domain.ErrEmptyUpdate, apiError{http.StatusBadRequest, "invalid_input", "No data provided"}},
}

// classify maps err to its HTTP rendering. The bool is false for unexpected
// errors, whose details must not reach the client.
func classify(err error) (apiError, bool) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.api, true
		}
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
		return apiError{http.StatusBadRequest, "invalid_input", msg}, true
	}
	return errInternal, false
}
