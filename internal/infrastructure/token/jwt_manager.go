package token

import (
	"errors"
	"fmt"
	"time"

	domain "accounts/backend/internal/domain/auth"
	usecase "accounts/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiration is the token lifetime when none is configured.
const DefaultExpiration = 24 * time.Hour

// JWTManager issues and validates HS256 JWT tokens.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// Option customises a JWTManager.
type Option func(*JWTManager)

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewJWTManager constructs a manager with the provided secret and expiration.
// A non-positive expiration falls back to DefaultExpiration.
func NewJWTManager(secret []byte, expiration time.Duration, opts ...Option) *JWTManager {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	m := &JWTManager{
		secret:     key,
		expiration: expiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue creates a signed JWT binding the user's id and username.
func (m *JWTManager) Issue(user *domain.User) (domain.IssuedToken, error) {
	const op = "token.Issue"

	if user == nil {
		return domain.IssuedToken{}, fmt.Errorf("%s: nil user", op)
	}

	// NumericDate has second precision; report exactly what is signed.
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.expiration)

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses the token and returns its claims when the signature verifies
// and the token has not expired.
func (m *JWTManager) Validate(tokenString string) (domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.TokenClaims{}, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.ExpiresAt == nil {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	out := domain.TokenClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}

// classify maps parser errors onto the domain taxonomy. Signature and structure
// failures win over expiry so a forged token never reports as merely expired.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrInvalidToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return domain.ErrInvalidToken
	}
}
