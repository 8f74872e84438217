package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// activationTokenBytes yields 256 bits of entropy, rendered as a
// fixed 43-character base64url string.
const activationTokenBytes = 32

// GenerateActivationToken returns a fresh activation token value.
func GenerateActivationToken() (string, error) {
	return GenerateSecureToken(activationTokenBytes)
}

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value. Token
// lookups run against this digest so the raw bearer value never lands
// in storage.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
