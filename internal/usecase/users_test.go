package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

func newUserFixture(t *testing.T, seed ...domain.User) (*UserService, *fakeUserRepo, *fakeTokenRepo, *mockPublisher) {
	t.Helper()
	users := newFakeUserRepo(seed...)
	tokens := newFakeTokenRepo()
	events := &mockPublisher{}
	activation := NewActivationService(users, tokens, &mockMailer{}, events, &mockSessions{}, nil, "https://portal.example.com", zaptest.NewLogger(t))
	svc := NewUserService(users, tokens, activation, events, zaptest.NewLogger(t))
	return svc, users, tokens, events
}

func TestUserCreate(t *testing.T) {
	svc, users, tokens, events := newUserFixture(t)

	result, err := svc.Create(context.Background(), CreateUserInput{
		Email:      "New.User@Example.com",
		Name:       "New User",
		Actor:      "admin-1",
		IssueToken: true,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if result.User.Email != "new.user@example.com" {
		t.Errorf("email = %s, want lowercased", result.User.Email)
	}
	if result.User.Status != domain.AccountStatusPendingActivation {
		t.Errorf("status = %s, want pending_activation", result.User.Status)
	}
	if result.User.PasswordHash != nil {
		t.Error("new account must not carry a credential")
	}
	if result.Token == nil {
		t.Fatal("expected an activation token")
	}
	if tokens.pendingCount(result.User.ID) != 1 {
		t.Error("expected one pending token for the new user")
	}
	if events.created != 1 {
		t.Errorf("created events = %d, want 1", events.created)
	}

	if _, err := users.GetByEmail(context.Background(), "new.user@example.com"); err != nil {
		t.Errorf("user not persisted: %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newUserFixture(t, pendingUser())

	_, err := svc.Create(context.Background(), CreateUserInput{
		Email: "demo.user@example.com",
		Name:  "Duplicate",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("Create error = %v, want ErrEmailTaken", err)
	}
}

func TestUserCreateValidation(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	cases := []CreateUserInput{
		{Email: "", Name: "No Email"},
		{Email: "not-an-email", Name: "Bad Email"},
		{Email: "ok@example.com", Name: ""},
	}
	for _, input := range cases {
		if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrValidation) {
			t.Errorf("Create(%+v) error = %v, want ErrValidation", input, err)
		}
	}
}

func TestUserDeleteRevokesTokens(t *testing.T) {
	svc, users, tokens, events := newUserFixture(t, pendingUser())

	activation := NewActivationService(users, tokens, &mockMailer{}, events, &mockSessions{}, nil, "https://portal.example.com", zaptest.NewLogger(t))
	issued, err := activation.Issue(context.Background(), IssueInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}

	revoked, err := svc.Delete(context.Background(), "user-1", "admin-1")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if revoked != 1 {
		t.Errorf("revoked = %d, want 1", revoked)
	}

	token, _ := tokens.byID(issued.TokenID)
	if token.Status != domain.TokenStatusRevoked {
		t.Errorf("token status = %s, want revoked", token.Status)
	}
	if _, err := users.GetByID(context.Background(), "user-1"); err == nil {
		t.Error("user should be gone")
	}
	if events.deleted != 1 {
		t.Errorf("deleted events = %d, want 1", events.deleted)
	}
}

func TestUserDeleteUnknown(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	if _, err := svc.Delete(context.Background(), "ghost", "admin-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Delete error = %v, want ErrUserNotFound", err)
	}
}

func TestUserResetCredential(t *testing.T) {
	svc, users, tokens, _ := newUserFixture(t, activatedUser())

	result, err := svc.ResetCredential(context.Background(), "user-1", "admin-1", "", "")
	if err != nil {
		t.Fatalf("ResetCredential returned error: %v", err)
	}
	if result.TokenValue == "" {
		t.Error("expected a reset token")
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.PasswordHash != nil {
		t.Error("credential should be cleared")
	}
	if user.CredentialStatus != domain.CredentialStatusTemporary {
		t.Errorf("credential status = %s, want temporary", user.CredentialStatus)
	}
	if user.Status != domain.AccountStatusPendingActivation {
		t.Errorf("account status = %s, want pending_activation", user.Status)
	}

	token, _ := tokens.byID(result.TokenID)
	if token.Type != domain.TokenTypeReset {
		t.Errorf("token type = %s, want reset", token.Type)
	}
}

// An account stripped of its credential must not stay active: the
// status and the stored credential move together, and a deactivated
// account can receive a fresh activation token again.
func TestUserResetCredentialDeactivatesAccount(t *testing.T) {
	users := newFakeUserRepo(activatedUser())
	tokens := newFakeTokenRepo()
	activation := NewActivationService(users, tokens, &mockMailer{}, &mockPublisher{}, &mockSessions{}, nil, "https://portal.example.com", zaptest.NewLogger(t))
	svc := NewUserService(users, tokens, activation, &mockPublisher{}, zaptest.NewLogger(t))

	if _, err := svc.ResetCredential(context.Background(), "user-1", "admin-1", "", ""); err != nil {
		t.Fatalf("ResetCredential returned error: %v", err)
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.IsActivated() {
		t.Errorf("account status = %s, want pending_activation after reset", user.Status)
	}
	if user.IsActivated() != user.HasCredential() {
		t.Errorf("status %s does not pair with credential presence %v", user.Status, user.HasCredential())
	}

	if _, err := activation.Issue(context.Background(), IssueInput{UserID: "user-1", Actor: "admin-1"}); err != nil {
		t.Fatalf("Issue after reset returned error: %v", err)
	}
}
