package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingCredentials indicates a login request without username or password.
	ErrMissingCredentials = errors.New("missing username or password")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken indicates a protected request without a bearer token.
	ErrMissingToken = errors.New("token missing")
	// ErrInvalidToken means a supplied token is malformed, badly signed or names an unknown user.
	ErrInvalidToken = errors.New("token invalid")
	// ErrTokenExpired means the token signature verified but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden indicates an authenticated caller acting on a resource it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists signals a duplicate username.
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidInput marks validation failures on user input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingFields indicates a create request lacking username, email or password.
	ErrMissingFields = fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	// ErrEmptyUpdate indicates an update request carrying no fields.
	ErrEmptyUpdate = fmt.Errorf("%w: no data provided", ErrInvalidInput)
)

// Field limits shared by every store. Passwords are capped by bcrypt, which
// ignores input past 72 bytes.
const (
	MaxUsernameLength = 64
	MaxEmailLength    = 120
	MaxPasswordBytes  = 72
)

// UserRole identifies the privileges assigned to a user.
type UserRole string

const (
	// RoleUser represents a standard application user.
	RoleUser UserRole = "user"
	// RoleAdmin represents an administrative user.
	RoleAdmin UserRole = "admin"
)

// User models the authentication entity persisted in storage.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Username string
	Password string
}

// TokenClaims is the claim set carried by a bearer token.
type TokenClaims struct {
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// AuthContext is the identity a single request acts as.
type AuthContext struct {
	User   *User
	Claims TokenClaims
}

// UserID returns the acting user's id, or zero when the context is empty.
func (a AuthContext) UserID() int64 {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}
