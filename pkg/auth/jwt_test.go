package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-must-be-at-least-32-bytes"

// TestNewJWTManager tests secret length enforcement.
func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager("too-short", 15*time.Minute); !errors.Is(err, ErrShortSecret) {
		t.Errorf("expected ErrShortSecret, got %v", err)
	}
	if _, err := NewJWTManager(testSecret, 15*time.Minute); err != nil {
		t.Errorf("unexpected error for valid secret: %v", err)
	}
}

// TestJWTManager_GenerateToken tests token generation input handling.
func TestJWTManager_GenerateToken(t *testing.T) {
	manager, err := NewJWTManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}

	tests := []struct {
		name      string
		userID    string
		username  string
		role      string
		wantError bool
	}{
		{
			name:     "valid admin token",
			userID:   "user123",
			username: "alice",
			role:     RoleAdmin,
		},
		{
			name:     "valid planner token",
			userID:   "user456",
			username: "bob",
			role:     RolePlanner,
		},
		{
			name:     "valid viewer token",
			userID:   "user789",
			username: "carol",
			role:     RoleViewer,
		},
		{
			name:      "empty userID fails",
			userID:    "",
			username:  "dave",
			role:      RoleViewer,
			wantError: true,
		},
		{
			name:      "empty username fails",
			userID:    "user101",
			username:  "",
			role:      RoleViewer,
			wantError: true,
		},
		{
			name:      "empty role fails",
			userID:    "user102",
			username:  "erin",
			role:      "",
			wantError: true,
		},
		{
			name:      "unknown role fails",
			userID:    "user103",
			username:  "frank",
			role:      "superuser",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.GenerateToken(tt.userID, tt.username, tt.role)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				if token != "" {
					t.Errorf("expected empty token on error, got %s", token)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if len(token) < 20 {
				t.Errorf("token too short: %s", token)
			}
		})
	}
}

// TestJWTManager_ValidateToken tests the round trip and rejection of
// malformed or foreign tokens.
func TestJWTManager_ValidateToken(t *testing.T) {
	manager, err := NewJWTManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}

	validToken, err := manager.GenerateToken("user123", "alice", RoleAdmin)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	claims, err := manager.ValidateToken(context.Background(), validToken)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if claims.UserID != "user123" || claims.Username != "alice" || claims.Role != RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Errorf("expected future expiry, got %v", claims.ExpiresAt)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "not.a.valid.jwt"},
		{name: "truncated token", token: validToken[:len(validToken)-10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.ValidateToken(context.Background(), tt.token); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

// TestJWTManager_ValidateToken_WrongSecret tests that tokens signed
// under a different secret are rejected.
func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	managerA, err := NewJWTManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}
	managerB, err := NewJWTManager("another-secret-key-also-32-bytes-long!", 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}

	token, err := managerA.GenerateToken("user123", "alice", RoleAdmin)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := managerB.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

// TestJWTManager_ValidateToken_Expired tests expiry rejection.
func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	// Negative TTL mints a token that is already expired.
	manager, err := NewJWTManager(testSecret, -1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}

	token, err := manager.GenerateToken("user123", "alice", RoleAdmin)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := manager.ValidateToken(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

// TestJWTManager_ValidateToken_ForeignIssuer tests that a token signed
// with the right secret but minted by a different issuer or for a
// different audience is rejected.
func TestJWTManager_ValidateToken_ForeignIssuer(t *testing.T) {
	manager, err := NewJWTManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create JWT manager: %v", err)
	}

	tests := []struct {
		name     string
		issuer   string
		audience string
	}{
		{name: "wrong issuer", issuer: "some-other-service", audience: TokenAudience},
		{name: "wrong audience", issuer: TokenIssuer, audience: "some-other-api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"user_id":  "user123",
				"username": "alice",
				"role":     RoleAdmin,
				"iss":      tt.issuer,
				"aud":      tt.audience,
				"exp":      now.Add(15 * time.Minute).Unix(),
				"iat":      now.Unix(),
			})
			tokenString, err := foreign.SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("failed to sign token: %v", err)
			}

			if _, err := manager.ValidateToken(context.Background(), tokenString); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

// TestCanWrite tests the role privilege split.
func TestCanWrite(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{role: RoleAdmin, want: true},
		{role: RolePlanner, want: true},
		{role: RoleViewer, want: false},
		{role: "", want: false},
		{role: "superuser", want: false},
	}

	for _, tt := range tests {
		if got := CanWrite(tt.role); got != tt.want {
			t.Errorf("CanWrite(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}
