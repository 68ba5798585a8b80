package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/config"
	"pricewatch/internal/storage"
)

type memoryUserStore struct {
	byEmail map[string]storage.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{byEmail: make(map[string]storage.User)}
}

func (m *memoryUserStore) CreateUser(_ context.Context, user storage.User) (storage.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Role == "" {
		user.Role = "officer"
	}
	user.CreatedAt = time.Now().UTC()
	m.byEmail[user.Email] = user
	return user, nil
}

func (m *memoryUserStore) FindUserByEmail(_ context.Context, email string) (storage.User, error) {
	user, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return storage.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(newMemoryUserStore(), config.AuthConfig{
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		BcryptCost:        4, // MinCost keeps the test fast
		MinPasswordLength: 6,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Juan Dela Cruz", "Juan@Example.com", "s3cret!")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "juan@example.com" {
		t.Fatalf("email should be lowercased, got %q", user.Email)
	}
	if user.PasswordHash == "s3cret!" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed, never plaintext")
	}

	if _, err := svc.Login(ctx, "juan@example.com", "s3cret!"); err != nil {
		t.Fatalf("login with correct password: %v", err)
	}
	if _, err := svc.Login(ctx, "juan@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "s3cret!"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "a@b.com", "s3cret!"); err == nil {
		t.Fatal("missing name should be rejected")
	}
	if _, err := svc.Register(ctx, "Name", "a@b.com", "short"); err == nil {
		t.Fatal("short password should be rejected")
	}

	if _, err := svc.Register(ctx, "Name", "a@b.com", "s3cret!"); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := svc.Register(ctx, "Name", "A@B.com", "s3cret!"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestTokenRoundtrip(t *testing.T) {
	svc := testService(t)
	user := storage.User{ID: "u-1", Email: "a@b.com", Role: "officer"}

	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "a@b.com" || claims.Role != "officer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.VerifyToken(token + "tampered"); err != ErrInvalidToken {
		t.Fatalf("tampered token should fail, got %v", err)
	}

	other := testService(t)
	if _, err := other.VerifyToken(token); err == nil {
		// both services share the same test secret, so this must succeed
		return
	}
	t.Fatal("token signed with same secret should verify")
}
