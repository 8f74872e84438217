package security

import (
	"encoding/base64"
	"testing"
)

func TestGenerateActivationToken(t *testing.T) {
	token, err := GenerateActivationToken()
	if err != nil {
		t.Fatalf("GenerateActivationToken() error = %v", err)
	}

	if len(token) != 43 {
		t.Errorf("token length = %d, want 43", len(token))
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded token = %d bytes, want 32", len(raw))
	}
}

func TestGenerateActivationTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateActivationToken()
		if err != nil {
			t.Fatalf("GenerateActivationToken() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token[:8])
		}
		seen[token] = true
	}
}

func TestHashToken(t *testing.T) {
	hash := HashToken("some-token-value")

	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}
	if hash != HashToken("some-token-value") {
		t.Error("hashing is not deterministic")
	}
	if hash == HashToken("some-other-value") {
		t.Error("distinct inputs produced the same hash")
	}
}
