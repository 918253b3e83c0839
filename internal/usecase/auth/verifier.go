package auth

import (
	"context"
	"errors"
	"fmt"

	domain "accounts/backend/internal/domain/auth"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a username/password pair against stored bcrypt hashes.
type CredentialVerifier struct {
	users     IdentityStore
	dummyHash []byte
}

// NewCredentialVerifier constructs a verifier. hashCost should match the cost
// used for stored hashes so unknown usernames take as long as wrong passwords.
func NewCredentialVerifier(users IdentityStore, hashCost int) *CredentialVerifier {
	v := &CredentialVerifier{users: users}
	if hash, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing-only"), hashCost); err == nil {
		v.dummyHash = hash
	}
	return v
}

// Verify returns the stored user when password matches its hash.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	const op = "usecase.auth.Verify"

	if username == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}

	// bcrypt truncates at 72 bytes, so a longer password could match a stored
	// prefix. No stored password is that long.
	if len(password) > domain.MaxPasswordBytes {
		v.dummyCompare(password)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			v.dummyCompare(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (v *CredentialVerifier) dummyCompare(password string) {
	if v.dummyHash == nil {
		return
	}
	if len(password) > domain.MaxPasswordBytes {
		password = password[:domain.MaxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
}
