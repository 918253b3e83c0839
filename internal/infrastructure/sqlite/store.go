// Package sqlite persists users in a single SQLite file using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	domain "accounts/backend/internal/domain/auth"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/schema.sql
var schemaSQL string

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements domain.UserRepository over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ domain.UserRepository = (*Store)(nil)

// Open opens the database file at path and applies the bundled schema.
func Open(ctx context.Context, path string) (*Store, error) {
	const op = "sqlite.Open"

	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: storage path is required", op)
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a new user and sets its generated id.
func (s *Store) Create(ctx context.Context, user *domain.User) error {
	const op = "sqlite.Store.Create"
	const query = `
INSERT INTO users (username, email, role, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`
	err := s.sqlDB.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		string(user.Role),
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	).Scan(&user.ID)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetByUsername fetches a user by exact username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, "sqlite.Store.GetByUsername", `WHERE username = ?`, username)
}

// GetByEmail fetches a user by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "sqlite.Store.GetByEmail", `WHERE email = ?`, email)
}

// GetByID fetches a user by id.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getOne(ctx, "sqlite.Store.GetByID", `WHERE id = ?`, id)
}

// List returns every user ordered by id.
func (s *Store) List(ctx context.Context) ([]*domain.User, error) {
	const op = "sqlite.Store.List"

	rows, err := s.sqlDB.QueryContext(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Update overwrites the mutable fields of an existing user.
func (s *Store) Update(ctx context.Context, user *domain.User) error {
	const op = "sqlite.Store.Update"
	const query = `
UPDATE users
SET username = ?, email = ?, role = ?, password_hash = ?, updated_at = ?
WHERE id = ?
`
	res, err := s.sqlDB.ExecContext(ctx, query,
		user.Username,
		user.Email,
		string(user.Role),
		user.PasswordHash,
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if uerr := uniqueViolation(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(op, res)
}

// Delete removes a user by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	const op = "sqlite.Store.Delete"

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(op, res)
}

const selectUser = `
SELECT id, username, email, role, password_hash, created_at, updated_at
FROM users`

func (s *Store) getOne(ctx context.Context, op, where string, arg any) (*domain.User, error) {
	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, selectUser+" "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                    domain.User
		role                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &role, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// uniqueViolation maps a UNIQUE failure on users to the matching domain error,
// or returns nil for any other error.
func uniqueViolation(err error) error {
	var sqliteErr *sqlitedrv.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
	default:
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "users.email") {
		return domain.ErrEmailExists
	}
	return domain.ErrUsernameExists
}
