package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pricewatch/internal/config"
	"pricewatch/internal/storage"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Service handles registration, login, and token issuance. Passwords are
// stored only as bcrypt hashes.
type Service struct {
	users      storage.UserStore
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	minPassLen int
}

// NewService constructs the authentication service.
func NewService(users storage.UserStore, cfg config.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	minLen := cfg.MinPasswordLength
	if minLen <= 0 {
		minLen = 6
	}

	return &Service{
		users:      users,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   ttl,
		bcryptCost: cost,
		minPassLen: minLen,
	}, nil
}

// Register creates a new office account.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (storage.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(strings.ToLower(email))

	if fullName == "" || email == "" || password == "" {
		return storage.User{}, errors.New("full name, email, and password are required")
	}
	if len(password) < s.minPassLen {
		return storage.User{}, fmt.Errorf("password must be at least %d characters", s.minPassLen)
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return storage.User{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return storage.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, storage.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return storage.User{}, err
	}
	return user, nil
}

// Login checks credentials and returns the account on success.
func (s *Service) Login(ctx context.Context, email, password string) (storage.User, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return storage.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return storage.User{}, ErrInvalidCredentials
	}

	return user, nil
}
