package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	domain "accounts/backend/internal/domain/auth"

	"golang.org/x/crypto/bcrypt"
)

// Service provides user management use cases.
type Service struct {
	repo     domain.UserRepository
	hashCost int
	nowFunc  func() time.Time
}

// NewService constructs a user service around the provided repository.
// hashCost is the bcrypt cost used for new password hashes.
func NewService(repo domain.UserRepository, hashCost int) *Service {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		hashCost: hashCost,
		nowFunc:  time.Now,
	}
}

// CreateInput defines the payload to create a new user.
type CreateInput struct {
	Username string
	Email    string
	Password string
}

// UpdateInput defines the payload to update a user. Nil fields are left unchanged.
type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
}

func (in UpdateInput) empty() bool {
	return in.Username == nil && in.Email == nil && in.Password == nil
}

func validateUsername(username string) error {
	if utf8.RuneCountInString(username) > domain.MaxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", domain.ErrInvalidInput, domain.MaxUsernameLength)
	}
	return nil
}

func validateEmail(email string) error {
	if utf8.RuneCountInString(email) > domain.MaxEmailLength {
		return fmt.Errorf("%w: email must be at most %d characters", domain.ErrInvalidInput, domain.MaxEmailLength)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) > domain.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, domain.MaxPasswordBytes)
	}
	return nil
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("usecase.user.List: %w", err)
	}
	return sanitizeUsers(users), nil
}

// Get retrieves a single user by its identifier.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Create persists a new user with the provided details.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.User, error) {
	const op = "usecase.user.Create"

	email := normalizeEmail(input.Email)
	if strings.TrimSpace(input.Username) == "" || email == "" || input.Password == "" {
		return nil, domain.ErrMissingFields
	}
	for _, err := range []error{
		validateUsername(input.Username),
		validateEmail(email),
		validatePassword(input.Password),
	} {
		if err != nil {
			return nil, err
		}
	}

	if err := s.ensureUsernameFree(ctx, input.Username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		Username:     input.Username,
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Update modifies the persisted user. An input with no fields set returns the
// user unchanged without writing.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*domain.User, error) {
	const op = "usecase.user.Update"

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.empty() {
		return sanitizeUser(user), nil
	}

	if input.Username != nil && *input.Username != user.Username {
		if strings.TrimSpace(*input.Username) == "" {
			return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
		}
		if err := validateUsername(*input.Username); err != nil {
			return nil, err
		}
		if err := s.ensureUsernameFree(ctx, *input.Username); err != nil {
			return nil, err
		}
		user.Username = *input.Username
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
		}
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}

	if input.Password != nil {
		if *input.Password == "" {
			return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
		}
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.PasswordHash = string(hashed)
	}

	user.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Delete removes the target user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return domain.ErrUsernameExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}

func sanitizeUsers(items []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(items))
	for _, item := range items {
		out = append(out, sanitizeUser(item))
	}
	return out
}
