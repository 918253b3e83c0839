// Package memory provides an in-process user store used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	domain "accounts/backend/internal/domain/auth"
)

// UserRepository keeps users in a map guarded by a RWMutex. Ids are assigned
// sequentially starting at 1 and are never reused.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

// NewUserRepository constructs an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[int64]domain.User),
		nextID: 1,
	}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// Create inserts a new user record and assigns its id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked(user, 0); err != nil {
		return err
	}

	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u *domain.User) bool { return u.Username == username })
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u *domain.User) bool { return u.Email == email })
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// List returns users ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update replaces an existing user record.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if err := r.checkUniqueLocked(user, user.ID); err != nil {
		return err
	}
	r.users[user.ID] = *user
	return nil
}

// Delete removes a user by id.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) find(ctx context.Context, match func(*domain.User) bool) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// checkUniqueLocked mirrors the unique indexes on username and email.
func (r *UserRepository) checkUniqueLocked(user *domain.User, selfID int64) error {
	for id, existing := range r.users {
		if id == selfID {
			continue
		}
		if existing.Username == user.Username {
			return domain.ErrUsernameExists
		}
		if existing.Email == user.Email {
			return domain.ErrEmailExists
		}
	}
	return nil
}
