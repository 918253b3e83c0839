package auth

import (
	"context"

	domain "accounts/backend/internal/domain/auth"
)

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	Issue(user *domain.User) (domain.IssuedToken, error)
	Validate(token string) (domain.TokenClaims, error)
}

// IdentityStore is the read side of the user store the auth flow depends on.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
