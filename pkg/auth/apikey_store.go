package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
)

// KeyPrefix marks keys issued for this service so a leaked key is
// recognizable in logs and secret scanners.
const KeyPrefix = "lrk_"

// KeyRandomLength is the number of random bytes behind each key.
const KeyRandomLength = 32

// APIKeyStore holds the static keys configured for machine clients.
// Keys are kept only as HMAC-SHA256 hashes under a per-process random
// secret: the clear key never lives in memory past construction, and
// the hash map cannot be probed offline without the secret.
type APIKeyStore struct {
	hashes     map[string]bool // keyHash -> present
	hmacSecret []byte
	mu         sync.RWMutex
}

// NewAPIKeyStore builds a store over the configured keys.
func NewAPIKeyStore(keys []string) *APIKeyStore {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		// Random source failing leaves a zero secret. Hashing still
		// works, only the offline-probing resistance is lost.
		secret = make([]byte, 32)
	}

	s := &APIKeyStore{
		hashes:     make(map[string]bool, len(keys)),
		hmacSecret: secret,
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		s.hashes[s.hashKey(key)] = true
	}
	return s
}

// Verify reports whether the presented key is one of the configured
// keys. Lookup is by HMAC hash, so the comparison does not depend on
// how much of the key matches.
func (s *APIKeyStore) Verify(key string) bool {
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hashes[s.hashKey(key)]
}

// Len returns the number of configured keys.
func (s *APIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}

func (s *APIKeyStore) hashKey(key string) string {
	mac := hmac.New(sha256.New, s.hmacSecret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateKey returns a fresh random API key in the service's format,
// for pasting into the auth.api_keys configuration list.
func GenerateKey() (string, error) {
	randomBytes := make([]byte, KeyRandomLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// LooksLikeKey reports whether a credential string is in the API key
// format, distinguishing it from a JWT in shared header handling.
func LooksLikeKey(credential string) bool {
	return strings.HasPrefix(credential, KeyPrefix)
}
