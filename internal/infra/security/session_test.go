package security

import (
	"errors"
	"testing"
	"time"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    "6a0f2bc1-8f0e-4c2a-9a31-b1d87c3f9e55",
		Email: "demo.user@example.com",
		Name:  "Demo User",
		Role:  "member",
	}
}

func TestSessionIssueAndParse(t *testing.T) {
	keys, err := NewEphemeralKeyProvider("v1")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider() error = %v", err)
	}

	issuer := NewSessionIssuer(keys, "v1", "cx-portal")
	user := testUser()

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 23*time.Hour {
		t.Errorf("session validity = %v, want about 24h", remaining)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("subject = %s, want %s", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email claim = %s, want %s", claims.Email, user.Email)
	}
	if claims.Role != user.Role {
		t.Errorf("role claim = %s, want %s", claims.Role, user.Role)
	}
}

func TestSessionParseExpired(t *testing.T) {
	keys, err := NewEphemeralKeyProvider("v1")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider() error = %v", err)
	}

	past := time.Now().Add(-48 * time.Hour)
	issuer := NewSessionIssuer(keys, "v1", "cx-portal").
		WithClock(func() time.Time { return past })

	token, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	verifier := NewSessionIssuer(keys, "v1", "cx-portal")
	if _, err := verifier.Parse(token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Parse() error = %v, want ErrSessionExpired", err)
	}
}

func TestSessionParseWrongKey(t *testing.T) {
	signing, err := NewEphemeralKeyProvider("v1")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider() error = %v", err)
	}
	other, err := NewEphemeralKeyProvider("v1")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider() error = %v", err)
	}

	token, _, err := NewSessionIssuer(signing, "v1", "cx-portal").Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := NewSessionIssuer(other, "v1", "cx-portal").Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Parse() error = %v, want ErrSessionInvalid", err)
	}
}

func TestSessionParseGarbage(t *testing.T) {
	keys, err := NewEphemeralKeyProvider("v1")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider() error = %v", err)
	}
	issuer := NewSessionIssuer(keys, "v1", "cx-portal")

	if _, err := issuer.Parse("not.a.token"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Parse() error = %v, want ErrSessionInvalid", err)
	}
}
