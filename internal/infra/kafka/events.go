package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserCreated publishes portal.user.created events.
func (p *EventPublisher) PublishUserCreated(ctx context.Context, event domain.UserCreatedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Email     string         `json:"email"`
		Name      string         `json:"name"`
		Role      string         `json:"role"`
		CreatedBy string         `json:"created_by"`
		CreatedAt time.Time      `json:"created_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Email:     event.Email,
		Name:      event.Name,
		Role:      event.Role,
		CreatedBy: event.CreatedBy,
		CreatedAt: event.CreatedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "portal.user.created", event.UserID, event.CreatedAt, payload)
}

// PublishUserDeleted publishes portal.user.deleted events.
func (p *EventPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	payload := struct {
		UserID        string         `json:"user_id"`
		DeletedBy     string         `json:"deleted_by"`
		DeletedAt     time.Time      `json:"deleted_at"`
		TokensRevoked int            `json:"tokens_revoked"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		UserID:        event.UserID,
		DeletedBy:     event.DeletedBy,
		DeletedAt:     event.DeletedAt.UTC(),
		TokensRevoked: event.TokensRevoked,
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "portal.user.deleted", event.UserID, event.DeletedAt, payload)
}

// PublishTokenIssued publishes portal.token.issued events. Only the
// masked destination travels in the payload; the raw token value never
// leaves the issuing request.
func (p *EventPublisher) PublishTokenIssued(ctx context.Context, event domain.TokenIssuedEvent) error {
	payload := struct {
		TokenID           string           `json:"token_id"`
		UserID            string           `json:"user_id"`
		Type              domain.TokenType `json:"type"`
		IssuedBy          string           `json:"issued_by"`
		IssuedAt          time.Time        `json:"issued_at"`
		ExpiresAt         time.Time        `json:"expires_at"`
		MaskedDestination string           `json:"masked_destination"`
		Delivered         bool             `json:"delivered"`
		Superseded        int              `json:"superseded"`
		Metadata          map[string]any   `json:"metadata,omitempty"`
	}{
		TokenID:           event.TokenID,
		UserID:            event.UserID,
		Type:              event.Type,
		IssuedBy:          event.IssuedBy,
		IssuedAt:          event.IssuedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		MaskedDestination: event.MaskedDestination,
		Delivered:         event.Delivered,
		Superseded:        event.Superseded,
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "portal.token.issued", event.UserID, event.IssuedAt, payload)
}

// PublishAccountActivated publishes portal.account.activated events.
func (p *EventPublisher) PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error {
	payload := struct {
		UserID      string         `json:"user_id"`
		TokenID     string         `json:"token_id"`
		ActivatedAt time.Time      `json:"activated_at"`
		IPAddress   *string        `json:"ip_address,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		UserID:      event.UserID,
		TokenID:     event.TokenID,
		ActivatedAt: event.ActivatedAt.UTC(),
		IPAddress:   event.IPAddress,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "portal.account.activated", event.UserID, event.ActivatedAt, payload)
}

// PublishLoginAttempt publishes portal.login.attempt events.
func (p *EventPublisher) PublishLoginAttempt(ctx context.Context, event domain.LoginEvent) error {
	payload := struct {
		UserID      *string        `json:"user_id,omitempty"`
		MaskedEmail string         `json:"masked_email"`
		Succeeded   bool           `json:"succeeded"`
		Reason      string         `json:"reason,omitempty"`
		IPAddress   string         `json:"ip_address"`
		UserAgent   string         `json:"user_agent,omitempty"`
		At          time.Time      `json:"at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		UserID:      event.UserID,
		MaskedEmail: event.MaskedEmail,
		Succeeded:   event.Succeeded,
		Reason:      event.Reason,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		At:          event.At.UTC(),
		Metadata:    event.Metadata,
	}

	userID := ""
	if event.UserID != nil {
		userID = *event.UserID
	}

	return p.publish(ctx, event.EventID, "portal.login.attempt", userID, event.At, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
