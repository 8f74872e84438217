package port

import (
	"context"
	"time"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
)

// UserRepository exposes persistence behavior for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Activate stores the credential hash and flips the account to
	// active, setting activated_at exactly once. The write only lands
	// on a pending account; repository.ErrNotFound is returned when
	// the user does not exist or is already active, so a concurrent
	// completion cannot overwrite a credential that won the race.
	Activate(ctx context.Context, id string, passwordHash string, passwordAlgo string, activatedAt time.Time) error
	// MarkCredentialTemporary clears the stored credential, flags it
	// temporary, and moves the account back to pending activation so
	// status and credential stay paired. Used by admin resets.
	MarkCredentialTemporary(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
