package auth

import (
	"errors"
	"strings"
	"testing"
)

// TestUserStore_CreateUser tests user creation and input validation.
func TestUserStore_CreateUser(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		role      string
		wantError error
	}{
		{
			name:     "valid admin",
			username: "alice",
			password: "correct-horse-battery",
			role:     RoleAdmin,
		},
		{
			name:     "valid planner",
			username: "line-planner_2",
			password: "password123",
			role:     RolePlanner,
		},
		{
			name:      "short username",
			username:  "al",
			password:  "password123",
			role:      RoleViewer,
			wantError: ErrInvalidUsername,
		},
		{
			name:      "username with spaces",
			username:  "alice smith",
			password:  "password123",
			role:      RoleViewer,
			wantError: ErrInvalidUsername,
		},
		{
			name:      "overlong username",
			username:  strings.Repeat("a", MaxUsernameLength+1),
			password:  "password123",
			role:      RoleViewer,
			wantError: ErrInvalidUsername,
		},
		{
			name:      "empty password",
			username:  "bob",
			password:  "",
			role:      RoleViewer,
			wantError: ErrEmptyPassword,
		},
		{
			name:      "weak password",
			username:  "bob",
			password:  "short",
			role:      RoleViewer,
			wantError: ErrWeakPassword,
		},
		{
			name:      "unknown role",
			username:  "bob",
			password:  "password123",
			role:      "superuser",
			wantError: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewUserStore()
			user, err := store.CreateUser(tt.username, tt.password, tt.role)

			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("expected %v, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID == "" {
				t.Error("expected generated user ID")
			}
			if user.PasswordHash == tt.password || user.PasswordHash == "" {
				t.Error("password must be stored hashed")
			}
			if user.CreatedAt == 0 {
				t.Error("expected CreatedAt to be set")
			}
		})
	}
}

// TestUserStore_DuplicateUsername tests that usernames are unique.
func TestUserStore_DuplicateUsername(t *testing.T) {
	store := NewUserStore()

	if _, err := store.CreateUser("alice", "password123", RoleAdmin); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := store.CreateUser("alice", "different-pass", RoleViewer); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

// TestUserStore_SeedUser tests seeding users from pre-hashed
// configuration entries.
func TestUserStore_SeedUser(t *testing.T) {
	hash, err := HashPassword("plant-floor-42")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	store := NewUserStore()
	user, err := store.SeedUser("planner", hash, RolePlanner)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if user.Role != RolePlanner {
		t.Errorf("expected role %s, got %s", RolePlanner, user.Role)
	}

	// The seeded hash must verify against the original password.
	if !store.VerifyPassword(user, "plant-floor-42") {
		t.Error("seeded user's password does not verify")
	}
	if store.VerifyPassword(user, "wrong-password") {
		t.Error("wrong password verified")
	}
}

// TestUserStore_SeedUser_Defaults tests the viewer default and the
// empty hash rejection.
func TestUserStore_SeedUser_Defaults(t *testing.T) {
	store := NewUserStore()

	user, err := store.SeedUser("observer", "$2a$12$fakehashfakehashfakehash", "")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if user.Role != RoleViewer {
		t.Errorf("expected default role viewer, got %s", user.Role)
	}

	if _, err := store.SeedUser("nohash", "", RoleViewer); !errors.Is(err, ErrEmptyPasswordHash) {
		t.Errorf("expected ErrEmptyPasswordHash, got %v", err)
	}
	if _, err := store.SeedUser("badrole", "$2a$12$fakehash", "root"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

// TestUserStore_GetUserByUsername tests lookup and the not-found path.
func TestUserStore_GetUserByUsername(t *testing.T) {
	store := NewUserStore()

	created, err := store.CreateUser("alice", "password123", RoleAdmin)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	got, err := store.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected user %s, got %s", created.ID, got.ID)
	}

	if _, err := store.GetUserByUsername("nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.GetUserByUsername(""); err == nil {
		t.Error("expected error for empty username")
	}
}

// TestUserStore_VerifyPassword tests the guard clauses.
func TestUserStore_VerifyPassword(t *testing.T) {
	store := NewUserStore()

	user, err := store.CreateUser("alice", "password123", RoleAdmin)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if !store.VerifyPassword(user, "password123") {
		t.Error("correct password rejected")
	}
	if store.VerifyPassword(user, "Password123") {
		t.Error("case-different password accepted")
	}
	if store.VerifyPassword(nil, "password123") {
		t.Error("nil user accepted")
	}
	if store.VerifyPassword(user, "") {
		t.Error("empty password accepted")
	}
}

// TestUserStore_Len tests the user count.
func TestUserStore_Len(t *testing.T) {
	store := NewUserStore()
	if store.Len() != 0 {
		t.Errorf("expected 0 users, got %d", store.Len())
	}

	if _, err := store.CreateUser("alice", "password123", RoleAdmin); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := store.CreateUser("bob", "password123", RoleViewer); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 users, got %d", store.Len())
	}
}

// TestHashPassword tests hashing for configuration entries.
func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("expected bcrypt hash, got %s", hash)
	}

	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}
