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
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/security"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

const (
	defaultCaptchaThreshold = 3
	defaultCaptchaMinScore  = 0.5
)

var (
	// ErrInvalidInput indicates a missing email or password.
	ErrInvalidInput = errors.New("email and password are required")
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords; the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCaptchaRequired indicates the IP crossed the failure
	// threshold and must present a CAPTCHA proof.
	ErrCaptchaRequired = errors.New("captcha required")
	// ErrCaptchaFailed indicates the presented proof did not pass.
	ErrCaptchaFailed = errors.New("captcha verification failed")
)

// AuthService authenticates portal users with progressive CAPTCHA
// friction after repeated failures from the same IP.
type AuthService struct {
	users            port.UserRepository
	attempts         port.AttemptStore
	captcha          port.CaptchaVerifier
	events           port.EventPublisher
	sessions         SessionMinter
	logger           *zap.Logger
	now              func() time.Time
	captchaThreshold int
	captchaMinScore  float64
}

// NewAuthService constructs an AuthService.
func NewAuthService(users port.UserRepository, attempts port.AttemptStore, captcha port.CaptchaVerifier, events port.EventPublisher, sessions SessionMinter, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		users:            users,
		attempts:         attempts,
		captcha:          captcha,
		events:           events,
		sessions:         sessions,
		logger:           log,
		now:              time.Now,
		captchaThreshold: defaultCaptchaThreshold,
		captchaMinScore:  defaultCaptchaMinScore,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// WithCaptchaThreshold overrides the failure count that triggers the
// CAPTCHA gate.
func (s *AuthService) WithCaptchaThreshold(threshold int) *AuthService {
	if threshold > 0 {
		s.captchaThreshold = threshold
	}
	return s
}

// WithCaptchaMinScore overrides the required proof confidence.
func (s *AuthService) WithCaptchaMinScore(score float64) *AuthService {
	s.captchaMinScore = score
	return s
}

// LoginInput carries one authentication attempt.
type LoginInput struct {
	Email        string
	Password     string
	CaptchaToken string
	IP           string
	UserAgent    string
}

// LoginResult reports a successful authentication. The credential hash
// never appears here.
type LoginResult struct {
	User             *domain.User
	SessionToken     string
	SessionExpiresAt time.Time
}

// Login verifies credentials. The CAPTCHA gate comes first: once an IP
// crosses the failure threshold every attempt needs a valid proof
// before credentials are even examined, throttling credential
// stuffing while the common case stays friction-free.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	failures := s.failureCount(ctx, input.IP)

	if failures >= s.captchaThreshold {
		if strings.TrimSpace(input.CaptchaToken) == "" {
			s.audit(ctx, nil, input, false, "captcha_required")
			return nil, ErrCaptchaRequired
		}
		if !s.verifyCaptcha(ctx, input.CaptchaToken, input.IP) {
			s.recordFailure(ctx, input.IP)
			s.audit(ctx, nil, input, false, "captcha_failed")
			return nil, ErrCaptchaFailed
		}
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		s.recordFailure(ctx, input.IP)
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Enumeration probes stay server-side: the audit
			// trail records the unknown email, the response is
			// identical to a wrong password.
			s.recordFailure(ctx, input.IP)
			s.logger.Info("login attempt for unknown email",
				zap.String("email", logger.MaskEmail(email)),
				zap.String("ip", logger.MaskIP(input.IP)),
			)
			s.audit(ctx, nil, input, false, "unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.HasCredential() {
		s.recordFailure(ctx, input.IP)
		s.audit(ctx, user, input, false, "no_credential")
		return nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, input.IP)
		s.audit(ctx, user, input, false, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	s.clearFailures(ctx, input.IP)

	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("record last login failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	sessionToken, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.audit(ctx, user, input, true, "")

	return &LoginResult{
		User:             user,
		SessionToken:     sessionToken,
		SessionExpiresAt: expiresAt,
	}, nil
}

// failureCount reads the tracker, degrading to zero when it is
// unreachable. The tracker is a best-effort throttle; an outage must
// not lock every user out.
func (s *AuthService) failureCount(ctx context.Context, ip string) int {
	if s.attempts == nil || ip == "" {
		return 0
	}

	count, err := s.attempts.Failures(ctx, ip)
	if err != nil {
		s.logger.Warn("read failed-attempt count failed",
			zap.String("ip", logger.MaskIP(ip)),
			zap.Error(err),
		)
		return 0
	}
	return count
}

func (s *AuthService) recordFailure(ctx context.Context, ip string) {
	if s.attempts == nil || ip == "" {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, ip); err != nil {
		s.logger.Warn("record failed attempt failed",
			zap.String("ip", logger.MaskIP(ip)),
			zap.Error(err),
		)
	}
}

func (s *AuthService) clearFailures(ctx context.Context, ip string) {
	if s.attempts == nil || ip == "" {
		return
	}
	if err := s.attempts.Clear(ctx, ip); err != nil {
		s.logger.Warn("clear failed attempts failed",
			zap.String("ip", logger.MaskIP(ip)),
			zap.Error(err),
		)
	}
}

// verifyCaptcha checks the proof against the provider. A provider
// outage degrades to allow: the gate throttles abuse, it is not a
// security-critical lock, and credentials are still required behind it.
func (s *AuthService) verifyCaptcha(ctx context.Context, clientToken, ip string) bool {
	if s.captcha == nil {
		return true
	}

	result, err := s.captcha.Verify(ctx, clientToken, ip)
	if err != nil {
		s.logger.Warn("captcha verification unavailable",
			zap.String("ip", logger.MaskIP(ip)),
			zap.Error(err),
		)
		return true
	}
	return result.MeetsThreshold(s.captchaMinScore)
}

func (s *AuthService) audit(ctx context.Context, user *domain.User, input LoginInput, succeeded bool, reason string) {
	if s.events == nil {
		return
	}

	event := domain.LoginEvent{
		EventID:     uuid.NewString(),
		MaskedEmail: logger.MaskEmail(strings.TrimSpace(strings.ToLower(input.Email))),
		Succeeded:   succeeded,
		Reason:      reason,
		IPAddress:   logger.MaskIP(input.IP),
		UserAgent:   input.UserAgent,
		At:          s.now().UTC(),
	}
	if user != nil {
		id := user.ID
		event.UserID = &id
	}
	if err := s.events.PublishLoginAttempt(ctx, event); err != nil {
		s.logger.Warn("publish login event failed", zap.Error(err))
	}
}
