package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo(users ...domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memUserRepo) Create(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := user
	return &copy, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
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

func (m *memUserRepo) Activate(ctx context.Context, id, passwordHash, passwordAlgo string, activatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memUserRepo) MarkCredentialTemporary(ctx context.Context, id string) error {
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

func (m *memUserRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
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

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.ActivationToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]domain.ActivationToken)}
}

func (m *memTokenRepo) CreatePending(ctx context.Context, token domain.ActivationToken) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revoked := 0
	for id, existing := range m.tokens {
		if existing.UserID == token.UserID && existing.Status == domain.TokenStatusPending {
			now := time.Now().UTC()
			existing.Status = domain.TokenStatusRevoked
			existing.RevokedAt = &now
			m.tokens[id] = existing
			revoked++
		}
	}
	m.tokens[token.ID] = token
	return revoked, nil
}

func (m *memTokenRepo) GetByHash(ctx context.Context, hash string) (*domain.ActivationToken, error) {
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

func (m *memTokenRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return m.transition(id, domain.TokenStatusUsed, at)
}

func (m *memTokenRepo) MarkExpired(ctx context.Context, id string) error {
	return m.transition(id, domain.TokenStatusExpired, time.Time{})
}

func (m *memTokenRepo) MarkRevoked(ctx context.Context, id string, at time.Time) error {
	return m.transition(id, domain.TokenStatusRevoked, at)
}

func (m *memTokenRepo) transition(id string, to domain.TokenStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok || token.Status != domain.TokenStatusPending {
		return nil
	}
	token.Status = to
	switch to {
	case domain.TokenStatusUsed:
		token.UsedAt = &at
	case domain.TokenStatusRevoked:
		token.RevokedAt = &at
	}
	m.tokens[id] = token
	return nil
}

func (m *memTokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revoked := 0
	for id, token := range m.tokens {
		if token.UserID == userID && token.Status == domain.TokenStatusPending {
			token.Status = domain.TokenStatusRevoked
			token.RevokedAt = &at
			m.tokens[id] = token
			revoked++
		}
	}
	return revoked, nil
}

type memAttemptStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemAttemptStore() *memAttemptStore {
	return &memAttemptStore{counts: make(map[string]int)}
}

func (m *memAttemptStore) Failures(ctx context.Context, ip string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[ip], nil
}

func (m *memAttemptStore) RecordFailure(ctx context.Context, ip string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[ip]++
	return m.counts[ip], nil
}

func (m *memAttemptStore) Clear(ctx context.Context, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, ip)
	return nil
}

type nopMailer struct{}

func (nopMailer) SendActivationLink(ctx context.Context, msg port.ActivationEmail) error {
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishUserCreated(ctx context.Context, event domain.UserCreatedEvent) error {
	return nil
}

func (nopPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	return nil
}

func (nopPublisher) PublishTokenIssued(ctx context.Context, event domain.TokenIssuedEvent) error {
	return nil
}

func (nopPublisher) PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error {
	return nil
}

func (nopPublisher) PublishLoginAttempt(ctx context.Context, event domain.LoginEvent) error {
	return nil
}

type staticCaptcha struct {
	result domain.CaptchaResult
}

func (s staticCaptcha) Verify(ctx context.Context, clientToken, remoteIP string) (domain.CaptchaResult, error) {
	return s.result, nil
}

type staticSessions struct{}

func (staticSessions) Issue(user *domain.User) (string, time.Time, error) {
	return "session-" + uuid.NewString(), time.Now().Add(24 * time.Hour), nil
}
