package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserCreated logs portal.user.created events.
func (p *StubPublisher) PublishUserCreated(_ context.Context, event domain.UserCreatedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      event.Email,
		"name":       event.Name,
		"role":       event.Role,
		"created_by": event.CreatedBy,
		"created_at": event.CreatedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("portal.user.created", event.UserID, event.CreatedAt, payload)
	return nil
}

// PublishUserDeleted logs portal.user.deleted events.
func (p *StubPublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	payload := map[string]any{
		"user_id":        event.UserID,
		"deleted_by":     event.DeletedBy,
		"deleted_at":     event.DeletedAt,
		"tokens_revoked": event.TokensRevoked,
		"metadata":       event.Metadata,
	}
	p.logEvent("portal.user.deleted", event.UserID, event.DeletedAt, payload)
	return nil
}

// PublishTokenIssued logs portal.token.issued events.
func (p *StubPublisher) PublishTokenIssued(_ context.Context, event domain.TokenIssuedEvent) error {
	payload := map[string]any{
		"token_id":           event.TokenID,
		"user_id":            event.UserID,
		"type":               event.Type,
		"issued_by":          event.IssuedBy,
		"issued_at":          event.IssuedAt,
		"expires_at":         event.ExpiresAt,
		"masked_destination": event.MaskedDestination,
		"delivered":          event.Delivered,
		"superseded":         event.Superseded,
		"metadata":           event.Metadata,
	}
	p.logEvent("portal.token.issued", event.UserID, event.IssuedAt, payload)
	return nil
}

// PublishAccountActivated logs portal.account.activated events.
func (p *StubPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"token_id":     event.TokenID,
		"activated_at": event.ActivatedAt,
		"ip_address":   event.IPAddress,
		"metadata":     event.Metadata,
	}
	p.logEvent("portal.account.activated", event.UserID, event.ActivatedAt, payload)
	return nil
}

// PublishLoginAttempt logs portal.login.attempt events.
func (p *StubPublisher) PublishLoginAttempt(_ context.Context, event domain.LoginEvent) error {
	userID := ""
	if event.UserID != nil {
		userID = *event.UserID
	}

	payload := map[string]any{
		"user_id":      event.UserID,
		"masked_email": event.MaskedEmail,
		"succeeded":    event.Succeeded,
		"reason":       event.Reason,
		"ip_address":   event.IPAddress,
		"user_agent":   event.UserAgent,
		"at":           event.At,
		"metadata":     event.Metadata,
	}
	p.logEvent("portal.login.attempt", userID, event.At, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
