package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "accounts/backend/internal/domain/auth"
	"accounts/backend/internal/infrastructure/token"
	"accounts/backend/internal/mocks"
	authusecase "accounts/backend/internal/usecase/auth"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	svc   *authusecase.Service
	repo  *mocks.MockUserRepository
	clock *clock
	jwt   *token.JWTManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	c := &clock{now: time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)}
	jwt := token.NewJWTManager([]byte("service-test-secret"), 24*time.Hour, token.WithClock(c.Now))
	svc := authusecase.NewService(authusecase.NewCredentialVerifier(repo, bcrypt.MinCost), repo, jwt)
	return fixture{svc: svc, repo: repo, clock: c, jwt: jwt}
}

func TestLogin_IssuesTokenBoundToUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	stored := &domain.User{ID: 7, Username: "alice", PasswordHash: mustHash(t, "correct")}
	f.repo.EXPECT().GetByUsername(gomock.Any(), "alice").Return(stored, nil)

	issued, user, err := f.svc.Login(context.Background(), domain.Credentials{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Value)
	require.Equal(t, f.clock.now.Add(24*time.Hour), issued.ExpiresAt)
	require.Equal(t, int64(7), user.ID)
	require.Empty(t, user.PasswordHash)
	require.NotEmpty(t, stored.PasswordHash, "stored entity must not be mutated")

	claims, err := f.jwt.Validate(issued.Value)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, domain.ErrUserNotFound)

	_, _, err := f.svc.Login(context.Background(), domain.Credentials{Username: "ghost", Password: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_MissingCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, _, err := f.svc.Login(context.Background(), domain.Credentials{Username: "alice"})
	require.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestAuthenticate_IssueThenValidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := &domain.User{ID: 7, Username: "alice", PasswordHash: "hash"}
	issued, err := f.jwt.Issue(user)
	require.NoError(t, err)

	f.repo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(user, nil)

	ac, err := f.svc.Authenticate(context.Background(), issued.Value)
	require.NoError(t, err)
	require.Equal(t, int64(7), ac.UserID())
	require.Equal(t, "alice", ac.User.Username)
	require.Empty(t, ac.User.PasswordHash)
	require.Equal(t, int64(7), ac.Claims.UserID)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestAuthenticate_Expired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	issued, err := f.jwt.Issue(&domain.User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	f.clock.now = issued.ExpiresAt.Add(time.Minute)

	_, err = f.svc.Authenticate(context.Background(), issued.Value)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthenticate_ForeignKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	foreign := token.NewJWTManager([]byte("someone-else"), time.Hour, token.WithClock(f.clock.Now))
	issued, err := foreign.Issue(&domain.User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), issued.Value)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticate_DeletedUserIsInvalidToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	issued, err := f.jwt.Issue(&domain.User{ID: 9, Username: "bob"})
	require.NoError(t, err)

	f.repo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(nil, domain.ErrUserNotFound)

	_, err = f.svc.Authenticate(context.Background(), issued.Value)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticate_StorageErrorIsNotAuthError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	issued, err := f.jwt.Issue(&domain.User{ID: 9, Username: "bob"})
	require.NoError(t, err)

	dbErr := errors.New("connection reset")
	f.repo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(nil, dbErr)

	_, err = f.svc.Authenticate(context.Background(), issued.Value)
	require.ErrorIs(t, err, dbErr)
	require.NotErrorIs(t, err, domain.ErrInvalidToken)
}
