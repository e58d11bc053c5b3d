package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// RefreshTokenBytes is the entropy of a session refresh token.
	RefreshTokenBytes = 64
	// TokenSecretBytes is the entropy of a user's signing secret.
	TokenSecretBytes = 32
)

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random token length must be positive, got %d", n)
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRefreshToken returns an opaque session token.
func NewRefreshToken() (string, error) {
	return RandomHex(RefreshTokenBytes)
}

// NewTokenSecret returns a per-user signing secret.
func NewTokenSecret() (string, error) {
	return RandomHex(TokenSecretBytes)
}

// SigningKey derives the HMAC key for one user's access tokens from the
// server-wide secret and that user's own secret. Rotating either invalidates
// the user's outstanding access tokens.
func SigningKey(serverSecret, userSecret string) []byte {
	mac := hmac.New(sha256.New, []byte(serverSecret))
	mac.Write([]byte(userSecret))
	return mac.Sum(nil)
}
