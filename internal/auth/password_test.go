package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/roomledger/roomledger/internal/models"
)

// memoryUserStorage is an in-memory UserStorage for authenticator tests.
type memoryUserStorage struct {
	byEmail map[string]*models.User
}

func newMemoryUserStorage() *memoryUserStorage {
	return &memoryUserStorage{byEmail: make(map[string]*models.User)}
}

func (s *memoryUserStorage) CreateUser(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *memoryUserStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.byEmail[email], nil
}

func (s *memoryUserStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func TestRegister(t *testing.T) {
	authn := NewPasswordAuthenticator(newMemoryUserStorage())
	ctx := context.Background()

	user, err := authn.Register(ctx, "alice@example.com", "Alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected user ID to be generated")
	}
	if user.PasswordHash == "correct-horse-battery" {
		t.Error("Password stored in plaintext")
	}
	if user.Role != models.RoleMember {
		t.Errorf("Role = %s, want member", user.Role)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := authn.Register(ctx, "alice@example.com", "Alice Again", "correct-horse-battery")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("Expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := authn.Register(ctx, "bob@example.com", "Bob", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Expected ErrWeakPassword, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	authn := NewPasswordAuthenticator(newMemoryUserStorage())
	ctx := context.Background()

	if _, err := authn.Register(ctx, "alice@example.com", "Alice", "correct-horse-battery"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := authn.Authenticate(ctx, "alice@example.com", "correct-horse-battery")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Errorf("Email = %s, want alice@example.com", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := authn.Authenticate(ctx, "alice@example.com", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := authn.Authenticate(ctx, "nobody@example.com", "correct-horse-battery")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}
