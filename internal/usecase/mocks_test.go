package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

// fakeUserRepo is an in-memory port.UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User

	createErr   error
	activateErr error
	deleteErr   error
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := user
	return &copy, nil
}

func (m *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copy := user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *fakeUserRepo) Activate(_ context.Context, id string, passwordHash string, passwordAlgo string, activatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activateErr != nil {
		return m.activateErr
	}
	user, ok := m.users[id]
	if !ok || user.Status != domain.AccountStatusPendingActivation {
		return repository.ErrNotFound
	}
	hash := passwordHash
	user.PasswordHash = &hash
	user.PasswordAlgo = passwordAlgo
	user.CredentialStatus = domain.CredentialStatusActive
	user.Status = domain.AccountStatusActive
	if user.ActivatedAt == nil {
		at := activatedAt
		user.ActivatedAt = &at
	}
	m.users[id] = user
	return nil
}

func (m *fakeUserRepo) MarkCredentialTemporary(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = nil
	user.CredentialStatus = domain.CredentialStatusTemporary
	user.Status = domain.AccountStatusPendingActivation
	m.users[id] = user
	return nil
}

func (m *fakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	stamp := at
	user.LastLogin = &stamp
	m.users[id] = user
	return nil
}

func (m *fakeUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// fakeTokenRepo is an in-memory port.TokenRepository preserving the
// at-most-one-pending invariant the way the real store does.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.ActivationToken

	createErr   error
	markUsedErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]domain.ActivationToken)}
}

func (m *fakeTokenRepo) CreatePending(_ context.Context, token domain.ActivationToken) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}

	revoked := 0
	for id, existing := range m.tokens {
		if existing.UserID == token.UserID && existing.Status == domain.TokenStatusPending {
			existing.Status = domain.TokenStatusRevoked
			at := token.CreatedAt
			existing.RevokedAt = &at
			m.tokens[id] = existing
			revoked++
		}
	}
	m.tokens[token.ID] = token
	return revoked, nil
}

func (m *fakeTokenRepo) GetByHash(_ context.Context, hash string) (*domain.ActivationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.TokenHash == hash {
			copy := token
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *fakeTokenRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	if m.markUsedErr != nil {
		return m.markUsedErr
	}
	return m.transition(id, domain.TokenStatusUsed, at)
}

func (m *fakeTokenRepo) MarkExpired(_ context.Context, id string) error {
	return m.transition(id, domain.TokenStatusExpired, time.Time{})
}

func (m *fakeTokenRepo) MarkRevoked(_ context.Context, id string, at time.Time) error {
	return m.transition(id, domain.TokenStatusRevoked, at)
}

func (m *fakeTokenRepo) transition(id string, to domain.TokenStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok || token.Status != domain.TokenStatusPending {
		return nil
	}
	token.Status = to
	switch to {
	case domain.TokenStatusUsed:
		stamp := at
		token.UsedAt = &stamp
	case domain.TokenStatusRevoked:
		stamp := at
		token.RevokedAt = &stamp
	}
	m.tokens[id] = token
	return nil
}

func (m *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revoked := 0
	for id, token := range m.tokens {
		if token.UserID == userID && token.Status == domain.TokenStatusPending {
			token.Status = domain.TokenStatusRevoked
			stamp := at
			token.RevokedAt = &stamp
			m.tokens[id] = token
			revoked++
		}
	}
	return revoked, nil
}

func (m *fakeTokenRepo) pendingCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, token := range m.tokens {
		if token.UserID == userID && token.Status == domain.TokenStatusPending {
			count++
		}
	}
	return count
}

func (m *fakeTokenRepo) byID(id string) (domain.ActivationToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	return token, ok
}

// fakeAttemptStore is an in-memory port.AttemptStore.
type fakeAttemptStore struct {
	mu     sync.Mutex
	counts map[string]int

	readErr error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: make(map[string]int)}
}

func (m *fakeAttemptStore) Failures(_ context.Context, ip string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.counts[ip], nil
}

func (m *fakeAttemptStore) RecordFailure(_ context.Context, ip string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[ip]++
	return m.counts[ip], nil
}

func (m *fakeAttemptStore) Clear(_ context.Context, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, ip)
	return nil
}

// mockMailer records activation mail without delivering anything.
type mockMailer struct {
	mu      sync.Mutex
	sent    []port.ActivationEmail
	sendErr error
}

func (m *mockMailer) SendActivationLink(_ context.Context, msg port.ActivationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mockPublisher counts published events.
type mockPublisher struct {
	mu        sync.Mutex
	created   int
	deleted   int
	issued    int
	activated int
	logins    []domain.LoginEvent
}

func (m *mockPublisher) PublishUserCreated(context.Context, domain.UserCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return nil
}

func (m *mockPublisher) PublishUserDeleted(context.Context, domain.UserDeletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
	return nil
}

func (m *mockPublisher) PublishTokenIssued(context.Context, domain.TokenIssuedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return nil
}

func (m *mockPublisher) PublishAccountActivated(context.Context, domain.AccountActivatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activated++
	return nil
}

func (m *mockPublisher) PublishLoginAttempt(_ context.Context, event domain.LoginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, event)
	return nil
}

// mockCaptcha returns a canned verdict.
type mockCaptcha struct {
	result domain.CaptchaResult
	err    error
	calls  int
}

func (m *mockCaptcha) Verify(context.Context, string, string) (domain.CaptchaResult, error) {
	m.calls++
	return m.result, m.err
}

// mockSessions mints a fixed session token.
type mockSessions struct {
	token string
	err   error
	calls int
}

func (m *mockSessions) Issue(*domain.User) (string, time.Time, error) {
	m.calls++
	if m.err != nil {
		return "", time.Time{}, m.err
	}
	token := m.token
	if token == "" {
		token = "session-token"
	}
	return token, time.Now().Add(24 * time.Hour), nil
}
