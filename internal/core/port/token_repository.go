package port

import (
	"context"
	"time"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// TokenRepository manages activation/reset token records.
type TokenRepository interface {
	// CreatePending inserts the token and, within the same
	// transaction, revokes every other pending token owned by the
	// same user. Returns how many priors were revoked. The at-most-
	// one-pending invariant must hold even under concurrent issuance
	// for the same user.
	CreatePending(ctx context.Context, token domain.ActivationToken) (int, error)
	GetByHash(ctx context.Context, hash string) (*domain.ActivationToken, error)
	// The Mark* transitions are idempotent: a token already in a
	// terminal state is left untouched and no error is returned, so
	// retries and races stay harmless.
	MarkUsed(ctx context.Context, id string, at time.Time) error
	MarkExpired(ctx context.Context, id string) error
	MarkRevoked(ctx context.Context, id string, at time.Time) error
	// RevokeAllForUser transitions every pending token owned by the
	// user to revoked; used by the delete-user cascade.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error)
}
