package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound indicates no account exists for the given email.
var ErrUserNotFound = errors.New("storage: user not found")

const (
	insertUserSQL = `INSERT INTO users (
        id,
        full_name,
        email,
        password_hash,
        role
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING created_at;`

	findUserByEmailSQL = `SELECT
        id,
        full_name,
        email,
        password_hash,
        role,
        created_at
    FROM users
    WHERE email = $1;`
)

// CreateUser persists a new office account. Emails are stored lowercased.
func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Role == "" {
		user.Role = "officer"
	}

	row := pool.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Role,
	)
	if err := row.Scan(&user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindUserByEmail looks up an account by (lowercased) email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	var user User
	row := pool.QueryRow(ctx, findUserByEmailSQL, strings.ToLower(email))
	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}
