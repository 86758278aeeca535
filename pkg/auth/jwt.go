// Package auth provides local authentication for the routing API:
// HS256 JWTs for interactive users and static API keys for machine
// clients such as MES integrations. Users and keys are seeded from
// configuration at startup; there is no self-service signup.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptyUserID   = errors.New("userID cannot be empty")
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrEmptyRole     = errors.New("role cannot be empty")
	ErrInvalidRole   = errors.New("invalid role")
	ErrShortSecret   = errors.New("secret must be at least 32 bytes")
)

// Roles, in descending privilege. Admins manage everything, planners
// may edit routings, viewers only read.
const (
	RoleAdmin   = "admin"
	RolePlanner = "planner"
	RoleViewer  = "viewer"
)

var validRoles = map[string]bool{
	RoleAdmin:   true,
	RolePlanner: true,
	RoleViewer:  true,
}

// CanWrite reports whether the role may change routing configurations.
func CanWrite(role string) bool {
	return role == RoleAdmin || role == RolePlanner
}

// Tokens carry these fixed issuer and audience values; validation
// rejects tokens minted for anything else.
const (
	TokenIssuer   = "line-routing"
	TokenAudience = "routing-api"
)

// Claims are the authenticated identity extracted from a token.
type Claims struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewJWTManager creates a manager from the shared signing secret.
// Secrets shorter than 32 bytes are rejected.
func NewJWTManager(secret string, tokenTTL time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &JWTManager{
		secretKey: []byte(secret),
		tokenTTL:  tokenTTL,
	}, nil
}

// GenerateToken mints a token for the given user.
func (m *JWTManager) GenerateToken(userID, username, role string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	if username == "" {
		return "", ErrEmptyUsername
	}
	if role == "" {
		return "", ErrEmptyRole
	}
	if !validRoles[role] {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"role":     role,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(m.tokenTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken checks signature, expiry, issuer and audience, and
// returns the embedded claims.
func (m *JWTManager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	userID, ok := claimsMap["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing or invalid user_id", ErrInvalidClaims)
	}
	username, ok := claimsMap["username"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: missing or invalid username", ErrInvalidClaims)
	}
	role, ok := claimsMap["role"].(string)
	if !ok || !validRoles[role] {
		return nil, fmt.Errorf("%w: missing or invalid role", ErrInvalidClaims)
	}

	expFloat, ok := claimsMap["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrInvalidClaims)
	}
	iatFloat, ok := claimsMap["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid iat", ErrInvalidClaims)
	}

	return &Claims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		ExpiresAt: time.Unix(int64(expFloat), 0),
		IssuedAt:  time.Unix(int64(iatFloat), 0),
	}, nil
}

// GetTokenDuration returns the configured token lifetime.
func (m *JWTManager) GetTokenDuration() time.Duration {
	return m.tokenTTL
}
