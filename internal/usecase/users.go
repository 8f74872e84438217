package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/logger"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

var (
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrValidation indicates malformed provisioning input.
	ErrValidation = errors.New("invalid input")
)

const defaultRole = "member"

// UserService handles admin-driven account provisioning. Accounts are
// created without a credential; the activation flow sets the first one.
type UserService struct {
	users      port.UserRepository
	tokens     port.TokenRepository
	activation *ActivationService
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(users port.UserRepository, tokens port.TokenRepository, activation *ActivationService, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}

	return &UserService{
		users:      users,
		tokens:     tokens,
		activation: activation,
		events:     events,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// CreateUserInput describes an admin provisioning request.
type CreateUserInput struct {
	Email     string
	Name      string
	Role      string
	Actor     string
	IP        string
	UserAgent string
	// IssueToken requests an activation token in the same call, the
	// common path for new accounts.
	IssueToken bool
}

// CreateUserResult reports the provisioned account and, when
// requested, the issued activation token.
type CreateUserResult struct {
	User  *domain.User
	Token *IssueResult
}

// Create provisions a passwordless account pending activation.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*CreateUserResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = defaultRole
	}
	actor := input.Actor
	if actor == "" {
		actor = "system"
	}

	now := s.now().UTC()
	user := domain.User{
		ID:               uuid.NewString(),
		Email:            email,
		Name:             name,
		Role:             role,
		PasswordAlgo:     "argon2id",
		CredentialStatus: domain.CredentialStatusPending,
		Status:           domain.AccountStatusPendingActivation,
		CreatedBy:        actor,
		CreatedAt:        now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishCreated(ctx, user, actor)

	s.logger.Info("user provisioned",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("created_by", actor),
	)

	result := &CreateUserResult{User: &user}

	if input.IssueToken && s.activation != nil {
		tokenResult, err := s.activation.Issue(ctx, IssueInput{
			UserID:    user.ID,
			Type:      domain.TokenTypeActivation,
			Actor:     actor,
			IP:        input.IP,
			UserAgent: input.UserAgent,
		})
		if err != nil {
			// The account exists; the admin can resend from the
			// console. Surface the degraded outcome, not a failure.
			s.logger.Error("issue activation token for new user failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		} else {
			result.Token = tokenResult
		}
	}

	return result, nil
}

// Delete removes an account. Every pending token the user owns is
// revoked first so no orphaned activation link outlives the account.
func (s *UserService) Delete(ctx context.Context, userID, actor string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if actor == "" {
		actor = "system"
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()

	revoked, err := s.tokens.RevokeAllForUser(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return revoked, ErrUserNotFound
		}
		return revoked, fmt.Errorf("delete user: %w", err)
	}

	s.publishDeleted(ctx, userID, actor, now, revoked)

	s.logger.Info("user deleted",
		zap.String("user_id", userID),
		zap.String("deleted_by", actor),
		zap.Int("tokens_revoked", revoked),
	)

	return revoked, nil
}

// ResetCredential clears the account's credential, returns the account
// to pending activation, and issues a reset token through the same
// lifecycle as activation.
func (s *UserService) ResetCredential(ctx context.Context, userID, actor, ip, userAgent string) (*IssueResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.users.MarkCredentialTemporary(ctx, userID); err != nil {
		return nil, fmt.Errorf("mark credential temporary: %w", err)
	}

	if s.activation == nil {
		return nil, fmt.Errorf("activation service not configured")
	}

	return s.activation.Issue(ctx, IssueInput{
		UserID:    userID,
		Type:      domain.TokenTypeReset,
		Actor:     actor,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func (s *UserService) publishCreated(ctx context.Context, user domain.User, actor string) {
	if s.events == nil {
		return
	}

	event := domain.UserCreatedEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Email:     logger.MaskEmail(user.Email),
		Name:      user.Name,
		Role:      user.Role,
		CreatedBy: actor,
		CreatedAt: user.CreatedAt,
	}
	if err := s.events.PublishUserCreated(ctx, event); err != nil {
		s.logger.Warn("publish user created event failed", zap.Error(err))
	}
}

func (s *UserService) publishDeleted(ctx context.Context, userID, actor string, at time.Time, revoked int) {
	if s.events == nil {
		return
	}

	event := domain.UserDeletedEvent{
		EventID:       uuid.NewString(),
		UserID:        userID,
		DeletedBy:     actor,
		DeletedAt:     at,
		TokensRevoked: revoked,
	}
	if err := s.events.PublishUserDeleted(ctx, event); err != nil {
		s.logger.Warn("publish user deleted event failed", zap.Error(err))
	}
}
