package sqlstore

import (
	"context"
	"fmt"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

const userColumns = `id, username, email, full_name, created_at`

// CreateUser inserts a user and fills in its id.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	id, err := s.insert(ctx, `INSERT INTO users(username, email, full_name, created_at) VALUES(?, ?, ?, ?)`,
		u.Username, u.Email, u.FullName, u.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflictf("username or email already registered")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.get(ctx, &u, "User", id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return u, err
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username)
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(1) FROM users WHERE LOWER(email) = LOWER(?)`, email)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := s.q.QueryRowxContext(ctx, s.q.Rebind(query), args...).Scan(&n); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}
