package auth

import "context"

//go:generate mockgen -source=repository.go -destination=../../mocks/user_repository.go -package=mocks

// UserRepository defines persistence operations for auth users.
//
// Lookups return ErrUserNotFound when no row matches; writes return
// ErrUsernameExists or ErrEmailExists on unique constraint violations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
}
