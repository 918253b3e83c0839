package token

import (
	"strings"
	"testing"
	"time"

	domain "accounts/backend/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T) (*JWTManager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewJWTManager(testSecret, 24*time.Hour, WithClock(clock.Now)), clock
}

func alice() *domain.User {
	return &domain.User{ID: 7, Username: "alice"}
}

func TestIssueValidate_RoundTrip(t *testing.T) {
	m, clock := newManager(t)

	issued, err := m.Issue(alice())
	require.NoError(t, err)
	require.NotEmpty(t, issued.Value)
	require.Equal(t, clock.Now().Add(24*time.Hour), issued.ExpiresAt)

	claims, err := m.Validate(issued.Value)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.True(t, claims.IssuedAt.Equal(clock.Now()))
	require.True(t, claims.ExpiresAt.Equal(issued.ExpiresAt))
}

func TestIssue_DeterministicForFixedClockAndKey(t *testing.T) {
	m, _ := newManager(t)

	a, err := m.Issue(alice())
	require.NoError(t, err)
	b, err := m.Issue(alice())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestIssue_NilUser(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Issue(nil)
	require.Error(t, err)
}

func TestNewJWTManager_DefaultExpiration(t *testing.T) {
	m := NewJWTManager(testSecret, 0)
	require.Equal(t, DefaultExpiration, m.expiration)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	m, clock := newManager(t)

	issued, err := m.Issue(alice())
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Second)
	_, err = m.Validate(issued.Value)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = m.Validate(issued.Value)
	require.ErrorIs(t, err, domain.ErrTokenExpired)

	clock.Advance(time.Hour)
	_, err = m.Validate(issued.Value)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestValidate_DifferentSecret(t *testing.T) {
	m, clock := newManager(t)
	other := NewJWTManager([]byte("another-secret"), 24*time.Hour, WithClock(clock.Now))

	issued, err := other.Issue(alice())
	require.NoError(t, err)

	_, err = m.Validate(issued.Value)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	// An expired token under a foreign key is still reported as invalid.
	clock.Advance(48 * time.Hour)
	_, err = m.Validate(issued.Value)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidate_Tampered(t *testing.T) {
	m, _ := newManager(t)

	issued, err := m.Issue(alice())
	require.NoError(t, err)

	parts := strings.Split(issued.Value, ".")
	require.Len(t, parts, 3)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   5,
		Username: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}).SigningString()
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	t.Run("swapped payload", func(t *testing.T) {
		token := parts[0] + "." + forgedParts[1] + "." + parts[2]
		_, err := m.Validate(token)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("flipped signature byte", func(t *testing.T) {
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		token := parts[0] + "." + parts[1] + "." + string(sig)
		_, err := m.Validate(token)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := m.Validate(parts[0] + "." + parts[1])
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	m, clock := newManager(t)
	claims := Claims{
		UserID:   7,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}

	t.Run("HS512", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("none", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestValidate_RequiredClaims(t *testing.T) {
	m, clock := newManager(t)

	t.Run("missing exp", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7, Username: "alice"}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("missing user_id", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Username: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
			},
		}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}
