package port

import (
	"context"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, event domain.UserCreatedEvent) error
	PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error
	PublishTokenIssued(ctx context.Context, event domain.TokenIssuedEvent) error
	PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error
	PublishLoginAttempt(ctx context.Context, event domain.LoginEvent) error
}
