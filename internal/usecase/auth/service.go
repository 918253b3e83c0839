package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domain "accounts/backend/internal/domain/auth"
	"accounts/backend/internal/logctx"
)

// Service coordinates authentication workflows between domain and infrastructure.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	verifier *CredentialVerifier
	users    IdentityStore
	tokens   TokenManager
}

// NewService constructs an auth service.
func NewService(verifier *CredentialVerifier, users IdentityStore, tokens TokenManager) *Service {
	return &Service{
		verifier: verifier,
		users:    users,
		tokens:   tokens,
	}
}

// Login validates credentials and returns a signed token plus the user.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.IssuedToken, *domain.User, error) {
	const op = "usecase.auth.Login"

	user, err := s.verifier.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			logctx.From(ctx).Warn("login_rejected", slog.String("username", creds.Username))
		}
		return domain.IssuedToken{}, nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.IssuedToken{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, sanitizeUser(user), nil
}

// Authenticate validates a bearer token and resolves the user it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.AuthContext, error) {
	const op = "usecase.auth.Authenticate"

	if token == "" {
		return domain.AuthContext{}, domain.ErrMissingToken
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.AuthContext{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AuthContext{}, domain.ErrInvalidToken
		}
		return domain.AuthContext{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.AuthContext{User: sanitizeUser(user), Claims: claims}, nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
