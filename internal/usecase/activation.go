package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/logger"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/security"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

const defaultActivationTTL = 24 * time.Hour

var (
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyActivated indicates the account already holds an active credential.
	ErrAlreadyActivated = errors.New("account already activated")
	// ErrTokenInvalid indicates the supplied token matches no record.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenUsed indicates the token was already consumed.
	ErrTokenUsed = errors.New("token already used")
	// ErrTokenRevoked indicates the token was superseded by a newer one.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenExpired indicates the token's validity window elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrWeakCredential indicates the submitted password fails policy.
	ErrWeakCredential = errors.New("credential does not meet policy")
)

// SessionMinter issues signed session credentials for authenticated
// users. security.SessionIssuer satisfies it.
type SessionMinter interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// ActivationService coordinates token issuance, verification, and
// activation completion.
type ActivationService struct {
	users     port.UserRepository
	tokens    port.TokenRepository
	mailer    port.ActivationMailer
	events    port.EventPublisher
	sessions  SessionMinter
	validator *security.PasswordValidator
	logger    *zap.Logger
	baseURL   string
	now       func() time.Time
	ttl       time.Duration
}

// NewActivationService constructs an ActivationService.
func NewActivationService(users port.UserRepository, tokens port.TokenRepository, mailer port.ActivationMailer, events port.EventPublisher, sessions SessionMinter, validator *security.PasswordValidator, baseURL string, log *zap.Logger) *ActivationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ActivationService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		events:    events,
		sessions:  sessions,
		validator: validator,
		logger:    log,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
		ttl:       defaultActivationTTL,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *ActivationService) WithClock(now func() time.Time) *ActivationService {
	s.now = now
	return s
}

// WithTTL overrides the activation token validity window. Test hook.
func (s *ActivationService) WithTTL(ttl time.Duration) *ActivationService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// IssueInput captures the context of a token issuance request.
type IssueInput struct {
	UserID    string
	Type      domain.TokenType
	Actor     string
	IP        string
	UserAgent string
}

// IssueResult reports a freshly issued token. TokenValue is the raw
// bearer secret and appears nowhere else; callers relay it to the
// delivery channel and drop it.
type IssueResult struct {
	TokenID    string
	TokenValue string
	ExpiresAt  time.Time
	Delivered  bool
	Superseded int
}

// Issue creates a pending activation token for the user, revoking any
// prior pending token. Mail delivery is best-effort: a failed send
// leaves the token valid and is reported through Delivered.
func (s *ActivationService) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if input.Type == "" {
		input.Type = domain.TokenTypeActivation
	}
	actor := input.Actor
	if actor == "" {
		actor = "system"
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if input.Type == domain.TokenTypeActivation && user.IsActivated() {
		return nil, ErrAlreadyActivated
	}

	tokenValue, err := security.GenerateActivationToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	token := domain.ActivationToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(tokenValue),
		Type:      input.Type,
		Status:    domain.TokenStatusPending,
		CreatedBy: actor,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if input.IP != "" {
		ip := input.IP
		token.IP = &ip
	}
	if input.UserAgent != "" {
		ua := input.UserAgent
		token.UserAgent = &ua
	}

	superseded, err := s.tokens.CreatePending(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	delivered := s.deliver(ctx, user, tokenValue, token.ExpiresAt)

	s.publishIssued(ctx, token, user, actor, delivered, superseded)

	s.logger.Info("activation token issued",
		zap.String("user_id", user.ID),
		zap.String("token_id", token.ID),
		zap.String("token_hash", logger.MaskToken(token.TokenHash)),
		zap.String("type", string(token.Type)),
		zap.Int("superseded", superseded),
		zap.Bool("delivered", delivered),
	)

	return &IssueResult{
		TokenID:    token.ID,
		TokenValue: tokenValue,
		ExpiresAt:  token.ExpiresAt,
		Delivered:  delivered,
		Superseded: superseded,
	}, nil
}

// Resend issues a replacement token for the user. The previous pending
// token is revoked as part of issuance, so a lost email gets a working
// new link and the old one stops verifying.
func (s *ActivationService) Resend(ctx context.Context, userID, actor, ip, userAgent string) (*IssueResult, error) {
	return s.Issue(ctx, IssueInput{
		UserID:    userID,
		Type:      domain.TokenTypeActivation,
		Actor:     actor,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func (s *ActivationService) deliver(ctx context.Context, user *domain.User, tokenValue string, expiresAt time.Time) bool {
	if s.mailer == nil {
		return false
	}

	msg := port.ActivationEmail{
		To:            user.Email,
		Name:          user.Name,
		ActivationURL: s.activationURL(tokenValue),
		Token:         tokenValue,
		ExpiresAt:     expiresAt,
	}

	if err := s.mailer.SendActivationLink(ctx, msg); err != nil {
		s.logger.Warn("activation mail delivery failed",
			zap.String("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *ActivationService) activationURL(tokenValue string) string {
	return fmt.Sprintf("%s/activate?token=%s", s.baseURL, url.QueryEscape(tokenValue))
}

func (s *ActivationService) publishIssued(ctx context.Context, token domain.ActivationToken, user *domain.User, actor string, delivered bool, superseded int) {
	if s.events == nil {
		return
	}

	event := domain.TokenIssuedEvent{
		EventID:           uuid.NewString(),
		TokenID:           token.ID,
		UserID:            user.ID,
		Type:              token.Type,
		IssuedBy:          actor,
		IssuedAt:          token.CreatedAt,
		ExpiresAt:         token.ExpiresAt,
		MaskedDestination: logger.MaskEmail(user.Email),
		Delivered:         delivered,
		Superseded:        superseded,
	}
	if err := s.events.PublishTokenIssued(ctx, event); err != nil {
		s.logger.Warn("publish token issued event failed", zap.Error(err))
	}
}

// VerifyResult describes a token that passed every validity check.
type VerifyResult struct {
	TokenID   string
	User      *domain.User
	ExpiresIn time.Duration
}

// Verify inspects a token without consuming it. A pending token past
// its deadline is transitioned to expired here, the one documented
// write on this read path; every other call leaves state untouched.
func (s *ActivationService) Verify(ctx context.Context, tokenValue string) (*VerifyResult, error) {
	token, user, err := s.checkToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		TokenID:   token.ID,
		User:      user,
		ExpiresIn: token.RemainingTTL(s.now().UTC()),
	}, nil
}

// checkToken runs the shared validity ladder: lookup, terminal states,
// lazy expiry, then owner activation state.
func (s *ActivationService) checkToken(ctx context.Context, tokenValue string) (*domain.ActivationToken, *domain.User, error) {
	if strings.TrimSpace(tokenValue) == "" {
		return nil, nil, ErrTokenInvalid
	}

	token, err := s.tokens.GetByHash(ctx, security.HashToken(tokenValue))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("lookup token: %w", err)
	}

	switch token.Status {
	case domain.TokenStatusUsed:
		return nil, nil, ErrTokenUsed
	case domain.TokenStatusRevoked:
		return nil, nil, ErrTokenRevoked
	case domain.TokenStatusExpired:
		return nil, nil, ErrTokenExpired
	}

	now := s.now().UTC()
	if token.IsExpired(now) {
		if err := s.tokens.MarkExpired(ctx, token.ID); err != nil {
			s.logger.Error("mark token expired failed",
				zap.String("token_id", token.ID),
				zap.Error(err),
			)
		}
		return nil, nil, ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("lookup token owner: %w", err)
	}

	if token.Type == domain.TokenTypeActivation && user.IsActivated() {
		return nil, nil, ErrAlreadyActivated
	}

	return token, user, nil
}

// CompleteResult reports a finished activation. SessionToken may be
// empty when session issuance failed; activation itself still stands.
type CompleteResult struct {
	User             *domain.User
	SessionToken     string
	SessionExpiresAt time.Time
}

// Complete consumes a valid pending token and sets the account's first
// credential. The credential is validated before any state is touched
// and the token's validity ladder is re-run in full; a token gone
// stale between the verify call and submission fails with the same
// taxonomy.
func (s *ActivationService) Complete(ctx context.Context, tokenValue, newCredential, clientIP string) (*CompleteResult, error) {
	if err := s.validator.Validate(newCredential); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakCredential, err)
	}

	token, user, err := s.checkToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(newCredential)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.Activate(ctx, user.ID, hash, "argon2id", now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The owner existed moments ago in checkToken, so zero
			// rows means a concurrent completion won the activation
			// race; the loser must not overwrite the winner's hash.
			return nil, ErrAlreadyActivated
		}
		return nil, fmt.Errorf("activate user: %w", err)
	}
	user.Activate(hash, now)

	// The account is active regardless of what happens below. A
	// failed token consumption leaves a pending token behind; log it
	// for manual follow-up instead of failing the caller whose
	// credential was in fact set.
	if err := s.tokens.MarkUsed(ctx, token.ID, now); err != nil {
		s.logger.Error("mark token used failed after activation",
			zap.String("user_id", user.ID),
			zap.String("token_id", token.ID),
			zap.Error(err),
		)
	}

	s.publishActivated(ctx, user.ID, token.ID, now, clientIP)

	result := &CompleteResult{User: user}

	if s.sessions != nil {
		sessionToken, expiresAt, err := s.sessions.Issue(user)
		if err != nil {
			s.logger.Warn("session issuance after activation failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		} else {
			result.SessionToken = sessionToken
			result.SessionExpiresAt = expiresAt
		}
	}

	s.logger.Info("account activated",
		zap.String("user_id", user.ID),
		zap.String("token_id", token.ID),
	)

	return result, nil
}

func (s *ActivationService) publishActivated(ctx context.Context, userID, tokenID string, at time.Time, clientIP string) {
	if s.events == nil {
		return
	}

	event := domain.AccountActivatedEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		TokenID:     tokenID,
		ActivatedAt: at,
	}
	if clientIP != "" {
		masked := logger.MaskIP(clientIP)
		event.IPAddress = &masked
	}
	if err := s.events.PublishAccountActivated(ctx, event); err != nil {
		s.logger.Warn("publish account activated event failed", zap.Error(err))
	}
}
