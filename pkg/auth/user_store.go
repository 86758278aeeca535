package auth

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-50 alphanumeric characters")
	ErrEmptyPasswordHash  = errors.New("password hash cannot be empty")
	ErrPasswordHashFailed = errors.New("failed to hash password")
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	BcryptCost        = 12
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User is an interactive account that can log in for a token.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Never serialize password hash
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}

// UserStore holds users in memory. The set is small (a plant has a
// handful of planners) and seeded from configuration at startup.
type UserStore struct {
	users       map[string]*User  // userID -> User
	usernameMap map[string]string // username -> userID
	mu          sync.RWMutex
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:       make(map[string]*User),
		usernameMap: make(map[string]string),
	}
}

// CreateUser creates a user from a clear-text password, hashing it
// with bcrypt before storing.
func (s *UserStore) CreateUser(username, password, role string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if _, exists := s.usernameMap[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}
	s.users[user.ID] = user
	s.usernameMap[username] = user.ID

	return user, nil
}

// SeedUser creates a user from an already hashed password, as read
// from the configuration file. An empty role defaults to viewer.
func (s *UserStore) SeedUser(username, passwordHash, role string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if _, exists := s.usernameMap[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	if passwordHash == "" {
		return nil, ErrEmptyPasswordHash
	}
	if role == "" {
		role = RoleViewer
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}
	s.users[user.ID] = user
	s.usernameMap[username] = user.ID

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *UserStore) GetUserByUsername(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidUsername
	}
	userID, exists := s.usernameMap[username]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	user, exists := s.users[userID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	return user, nil
}

// VerifyPassword checks a clear-text password against the user's hash.
func (s *UserStore) VerifyPassword(user *User, password string) bool {
	if user == nil || password == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// HashPassword bcrypt-hashes a password for storage in configuration.
// The routing-admin hash-password command uses this to prepare user
// entries without the service running.
func HashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
