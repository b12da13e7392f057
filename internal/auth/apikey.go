package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// ErrEmptyKey is returned when hashing an empty API key.
var ErrEmptyKey = errors.New("api key is empty")

// HashKey generates the bcrypt hash stored in relay.api_key_hash.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// CompareKey reports whether key matches the stored hash.
func CompareKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// KeyVerifier checks API keys against a bcrypt hash. After the first key
// matches, its SHA-256 digest is kept and later requests are compared in
// constant time instead of paying for bcrypt again.
type KeyVerifier struct {
	hash string

	mu       sync.RWMutex
	verified bool
	digest   [sha256.Size]byte
}

// NewKeyVerifier builds a verifier for the stored bcrypt hash.
func NewKeyVerifier(hash string) *KeyVerifier {
	return &KeyVerifier{hash: hash}
}

// Verify reports whether key matches the stored hash.
func (v *KeyVerifier) Verify(key string) bool {
	if v.hash == "" || key == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))

	v.mu.RLock()
	verified, digest := v.verified, v.digest
	v.mu.RUnlock()
	if verified {
		return subtle.ConstantTimeCompare(sum[:], digest[:]) == 1
	}

	if !CompareKey(v.hash, key) {
		return false
	}
	v.mu.Lock()
	if !v.verified {
		v.verified = true
		v.digest = sum
	}
	v.mu.Unlock()
	return true
}
