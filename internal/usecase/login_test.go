package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/security"
)

const loginPassword = "Abcd1234"

func loginUser(t *testing.T) domain.User {
	t.Helper()
	hash, err := security.HashPassword(loginPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := activatedUser()
	user.PasswordHash = &hash
	return user
}

func newAuthFixture(t *testing.T, users *fakeUserRepo) (*AuthService, *fakeAttemptStore, *mockCaptcha, *mockPublisher) {
	t.Helper()
	attempts := newFakeAttemptStore()
	captcha := &mockCaptcha{result: domain.CaptchaResult{Success: true, Score: 0.9}}
	events := &mockPublisher{}
	svc := NewAuthService(users, attempts, captcha, events, &mockSessions{}, zaptest.NewLogger(t))
	return svc, attempts, captcha, events
}

func TestLoginSuccess(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, _, _ := newAuthFixture(t, users)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: loginPassword,
		IP:       "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.SessionToken == "" {
		t.Error("expected session token")
	}
	if result.User.PasswordHash != nil && result.User.Email == "" {
		t.Error("expected public user profile")
	}
	if count, _ := attempts.Failures(context.Background(), "203.0.113.9"); count != 0 {
		t.Errorf("failure count = %d, want 0", count)
	}

	persisted, _ := users.GetByID(context.Background(), "user-1")
	if persisted.LastLogin == nil {
		t.Error("last login not recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, _, _ := newAuthFixture(t, users)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: "Wrong1234",
		IP:       "203.0.113.9",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
	if count, _ := attempts.Failures(context.Background(), "203.0.113.9"); count != 1 {
		t.Errorf("failure count = %d, want 1", count)
	}
}

func TestLoginUnknownEmailSameShape(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, _, _, events := newAuthFixture(t, users)

	_, unknownErr := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "Whatever1",
		IP:       "203.0.113.9",
	})
	_, wrongErr := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: "Wrong1234",
		IP:       "203.0.113.9",
	})

	// The caller cannot tell the two apart; the audit trail can.
	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials for both", unknownErr, wrongErr)
	}
	if len(events.logins) != 2 {
		t.Fatalf("login events = %d, want 2", len(events.logins))
	}
	if events.logins[0].Reason != "unknown_email" {
		t.Errorf("first audit reason = %s, want unknown_email", events.logins[0].Reason)
	}
	if events.logins[1].Reason != "wrong_password" {
		t.Errorf("second audit reason = %s, want wrong_password", events.logins[1].Reason)
	}
}

func TestLoginMissingInput(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, _, _ := newAuthFixture(t, users)

	if _, err := svc.Login(context.Background(), LoginInput{IP: "203.0.113.9"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Login error = %v, want ErrInvalidInput", err)
	}
	if count, _ := attempts.Failures(context.Background(), "203.0.113.9"); count != 1 {
		t.Errorf("failure count = %d, want 1", count)
	}
}

func TestLoginCaptchaGate(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, _, _ := newAuthFixture(t, users)

	ip := "203.0.113.9"

	// Three consecutive failures arm the gate.
	for i := 0; i < 3; i++ {
		if _, err := svc.Login(context.Background(), LoginInput{
			Email:    "demo.user@example.com",
			Password: "Wrong1234",
			IP:       ip,
		}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// Fourth attempt with correct credentials but no proof.
	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: loginPassword,
		IP:       ip,
	})
	if !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("gated attempt error = %v, want ErrCaptchaRequired", err)
	}
	// The challenge itself does not inflate the failure counter.
	if count, _ := attempts.Failures(context.Background(), ip); count != 3 {
		t.Errorf("failure count after challenge = %d, want 3", count)
	}

	// Valid proof lets the login through and clears the counter.
	result, err := svc.Login(context.Background(), LoginInput{
		Email:        "demo.user@example.com",
		Password:     loginPassword,
		CaptchaToken: "proof",
		IP:           ip,
	})
	if err != nil {
		t.Fatalf("Login with proof returned error: %v", err)
	}
	if result.SessionToken == "" {
		t.Error("expected session token")
	}
	if count, _ := attempts.Failures(context.Background(), ip); count != 0 {
		t.Errorf("failure count after success = %d, want 0", count)
	}

	// The gate re-arms only after three fresh failures.
	if _, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: "Wrong1234",
		IP:       ip,
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("post-success failure error = %v, want ErrInvalidCredentials (no CAPTCHA yet)", err)
	}
}

func TestLoginCaptchaFailedProof(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, captcha, _ := newAuthFixture(t, users)
	captcha.result = domain.CaptchaResult{Success: true, Score: 0.2}

	ip := "203.0.113.9"
	for i := 0; i < 3; i++ {
		attempts.RecordFailure(context.Background(), ip)
	}

	_, err := svc.Login(context.Background(), LoginInput{
		Email:        "demo.user@example.com",
		Password:     loginPassword,
		CaptchaToken: "low-confidence",
		IP:           ip,
	})
	if !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("Login error = %v, want ErrCaptchaFailed", err)
	}
	// A failed proof counts as a failed login.
	if count, _ := attempts.Failures(context.Background(), ip); count != 4 {
		t.Errorf("failure count = %d, want 4", count)
	}
}

func TestLoginCaptchaProviderOutageDegradesToAllow(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	svc, attempts, captcha, _ := newAuthFixture(t, users)
	captcha.err = errors.New("provider timeout")

	ip := "203.0.113.9"
	for i := 0; i < 3; i++ {
		attempts.RecordFailure(context.Background(), ip)
	}

	result, err := svc.Login(context.Background(), LoginInput{
		Email:        "demo.user@example.com",
		Password:     loginPassword,
		CaptchaToken: "proof",
		IP:           ip,
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.SessionToken == "" {
		t.Error("expected session token despite provider outage")
	}
}

func TestLoginAttemptStoreOutageDegradesToAllow(t *testing.T) {
	users := newFakeUserRepo(loginUser(t))
	attempts := newFakeAttemptStore()
	attempts.readErr = errors.New("redis down")
	svc := NewAuthService(users, attempts, &mockCaptcha{}, &mockPublisher{}, &mockSessions{}, zaptest.NewLogger(t))

	if _, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: loginPassword,
		IP:       "203.0.113.9",
	}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
}

func TestLoginPendingAccountHasNoCredential(t *testing.T) {
	users := newFakeUserRepo(pendingUser())
	svc, _, _, _ := newAuthFixture(t, users)

	if _, err := svc.Login(context.Background(), LoginInput{
		Email:    "demo.user@example.com",
		Password: "Anything1",
		IP:       "203.0.113.9",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
}
